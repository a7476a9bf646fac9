package date

import "testing"

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := New(2025, 07, 01), "25 Jul 1"
	d2, v2 := New(2024, 07, 01), "24 Jul 1"

	// Test is about appending two values in reverse order and checking that everything is
	// as expected at every step of the way.

	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}

	h.Append(d1, v1)
	if h.Len() != 1 {
		t.Errorf("Append(d1, v1).Len() = %v want 1", h.Len())
	}

	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Errorf("Append(d2, v2).Len() = %v want 2", h.Len())
	}

	if h.days[1] != d1 {
		t.Errorf("history[1].day = %v want %v", h.days[1], d1)
	}
	if h.days[0] != d2 {
		t.Errorf("history[0].day = %v want %v", h.days[0], d2)
	}
	if h.values[1] != v1 {
		t.Errorf("history[1].value = %v want %v", h.values[1], v1)
	}
	if h.values[0] != v2 {
		t.Errorf("history[0].value = %v want %v", h.values[0], v2)
	}

	// overwrite
	h.Append(d1, "again")
	if h.Len() != 2 {
		t.Errorf("Append(d1, again).Len() = %v want 2", h.Len())
	}
	if v, ok := h.Get(d1); !ok || v != "again" {
		t.Errorf("Get(d1) = %q, %v want %q, true", v, ok, "again")
	}
}

func TestWithin(t *testing.T) {
	h := new(History[float64])
	for i := 0; i < 10; i++ {
		h.Append(New(2024, 1, 1+i), float64(i))
	}
	w := h.Within(NewRange(New(2024, 1, 3), New(2024, 1, 5)))
	if w.Len() != 3 {
		t.Fatalf("Within().Len() = %d, want 3", w.Len())
	}
	day, v := w.Latest()
	if day != New(2024, 1, 5) || v != 4 {
		t.Errorf("Within().Latest() = %v, %v want 2024-01-05, 4", day, v)
	}
	if _, ok := w.Get(New(2024, 1, 2)); ok {
		t.Errorf("Within().Get(2024-01-02) found, want missing")
	}
}
