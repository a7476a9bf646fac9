package date

import "fmt"

// Range represents a range of dates, boundaries included.
//
// A zero From or To leaves that side of the range open.
type Range struct{ From, To Date }

// NewRange returns the range between from and to.
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool {
	if !r.From.IsZero() && date.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && date.After(r.To) {
		return false
	}
	return true
}

// Days returns the number of calendar days spanned by the range, or -1 if it is open.
func (r Range) Days() int {
	if r.From.IsZero() || r.To.IsZero() {
		return -1
	}
	return r.To.Sub(r.From)
}

// Identifier compute a unique identifier for the Range.
func (r Range) Identifier() string {
	return fmt.Sprintf("%s_%s", r.From, r.To)
}
