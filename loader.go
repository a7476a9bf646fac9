package backtester

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LoadPriceCSV reads a daily history from a CSV with a "Date" and a "Close" column.
//
// Header names are matched case insensitively. Only the first 10 characters of a date are
// used, so timestamps like "2024-01-02 00:00:00-05:00" are accepted. Rows with an empty
// close are skipped.
func LoadPriceCSV(r io.Reader) (*date.History[float64], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read price header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("price file needs a Date and a Close column, got %v", header)
	}

	h := new(date.History[float64])
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return h, nil
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= max(dateCol, closeCol) {
			return nil, fmt.Errorf("line %d: expected at least %d columns", line, max(dateCol, closeCol)+1)
		}
		raw := strings.TrimSpace(record[dateCol])
		if len(raw) > 10 {
			raw = raw[:10]
		}
		on, err := date.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.TrimSpace(record[closeCol]) == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid close %q: %w", line, record[closeCol], err)
		}
		h.Append(on, price)
	}
}

// priceFile returns the price file of an instrument: <ticker>_daily.csv, <ticker>.csv, or else
// <ticker>.json.
func priceFile(dir, instrument string) (string, error) {
	for _, name := range []string{instrument + "_daily.csv", instrument + ".csv", instrument + ".json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no price file for %s in %q: %w", instrument, dir, os.ErrNotExist)
}

// LoadPriceDir loads the daily history of each instrument from dir and aligns them in a
// PriceTable, restricted to window.
//
// Rows are the union of all dates; an instrument without a price on a date gets a missing cell.
func LoadPriceDir(dir string, instruments []string, window date.Range) (*PriceTable, error) {
	histories := make([]*date.History[float64], len(instruments))
	var errs []error
	for i, instrument := range instruments {
		p, err := priceFile(dir, instrument)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h, err := loadPriceFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", instrument, err))
			continue
		}
		histories[i] = h.Within(window)
		log.WithFields(log.Fields{"instrument": instrument, "file": p, "prices": histories[i].Len()}).Debug("prices loaded")
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return AlignPrices(instruments, histories...)
}

func loadPriceFile(p string) (*date.History[float64], error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if filepath.Ext(p) == ".json" {
		return LoadPriceJSON(f, EODDatesPath, EODClosePath)
	}
	return LoadPriceCSV(f)
}

// Paths of the dates and close prices in an end of day document: an array of
// {"date": "2024-02-13", "open": 1.2, "close": 1.3, ...} objects.
const (
	EODDatesPath = "$[*].date"
	EODClosePath = "$[*].close"
)

// AlignPrices builds a PriceTable from one history per instrument.
func AlignPrices(instruments []string, histories ...*date.History[float64]) (*PriceTable, error) {
	if len(instruments) != len(histories) {
		return nil, fmt.Errorf("%w: %d instruments for %d histories", ErrShapeMismatch, len(instruments), len(histories))
	}
	var dates []date.Date
	for on := range date.Iterate(histories...) {
		dates = append(dates, on)
	}
	f, err := NewFrame(dates, instruments)
	if err != nil {
		return nil, err
	}
	p := NewPriceTable(f)
	for i, on := range dates {
		for j, h := range histories {
			if v, ok := h.Get(on); ok {
				p.Set(i, j, decimal.NewFromFloat(v))
			}
		}
	}
	return p, nil
}

// LoadPriceJSON reads a daily history from a JSON document, typically the answer of a chart
// API. datesPath and pricesPath are jsonpath expressions selecting two arrays of the same
// length: dates (strings) and prices (numbers).
func LoadPriceJSON(r io.Reader, datesPath, pricesPath string) (*date.History[float64], error) {
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("could not decode price document: %w", err)
	}
	jdates, err := jsonArray(jobj, datesPath)
	if err != nil {
		return nil, err
	}
	jprices, err := jsonArray(jobj, pricesPath)
	if err != nil {
		return nil, err
	}
	if len(jdates) != len(jprices) {
		return nil, fmt.Errorf("%q selects %d dates but %q selects %d prices", datesPath, len(jdates), pricesPath, len(jprices))
	}
	h := new(date.History[float64])
	for i, jd := range jdates {
		s, ok := jd.(string)
		if !ok {
			return nil, fmt.Errorf("%q[%d]: not a date string: %v", datesPath, i, jd)
		}
		if len(s) > 10 {
			s = s[:10]
		}
		on, err := date.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%q[%d]: %w", datesPath, i, err)
		}
		if jprices[i] == nil {
			continue
		}
		price, ok := jprices[i].(float64)
		if !ok {
			return nil, fmt.Errorf("%q[%d]: not a number: %v", pricesPath, i, jprices[i])
		}
		h.Append(on, price)
	}
	return h, nil
}

func jsonArray(jobj any, path string) ([]any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", path, err)
	}
	jlist, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("%q does not select an array: %v", path, jval)
	}
	// a path like "$.data" returns the array itself wrapped or not, depending on the path
	if len(jlist) == 1 {
		if inner, ok := jlist[0].([]any); ok {
			return inner, nil
		}
	}
	return jlist, nil
}
