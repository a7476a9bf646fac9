// Package universe knows the stock indexes a backtest can run on, their benchmark ETF, and where
// to find their components.
package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownIndex is returned for an index that is not in Indexes.
var ErrUnknownIndex = errors.New("unknown index")

var indexes = []string{"S&P 500", "NASDAQ 100", "DJIA", "RUSSELL 2000", "OwlHack 2024 Universe", "Test Universe", "Small Universe"}

var etfs = map[string]string{
	"S&P 500":               "SPY",
	"NASDAQ 100":            "QQQ",
	"DJIA":                  "DIA",
	"RUSSELL 2000":          "IWM",
	"OwlHack 2024 Universe": "SPY",
	"Small Universe":        "SPY",
	"Test Universe":         "SPY",
}

var sectors = []string{"Basic Materials", "Communication Services", "Consumer Cyclical",
	"Consumer Defensive", "Energy", "Financial", "Healthcare", "Industrials",
	"Real Estate", "Technology", "Utilities", "Others"}

// Indexes returns the known indexes.
func Indexes() []string { return append([]string(nil), indexes...) }

// Sectors returns the sector names used to classify components.
func Sectors() []string { return append([]string(nil), sectors...) }

// BenchmarkETF returns the ticker of the ETF that tracks index.
func BenchmarkETF(index string) (string, error) {
	etf, ok := etfs[index]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIndex, index)
	}
	return etf, nil
}

// File returns the path of the components file of index: its name without spaces, with a
// .txt extension.
func File(metaDir, index string) string {
	return filepath.Join(metaDir, strings.ReplaceAll(index, " ", "")+".txt")
}

// Components reads the tickers of index from metaDir.
func Components(metaDir, index string) ([]string, error) {
	f, err := os.Open(File(metaDir, index))
	if err != nil {
		return nil, fmt.Errorf("components of %q: %w", index, err)
	}
	defer f.Close()
	tickers, err := ReadComponents(f)
	if err != nil {
		return nil, fmt.Errorf("components of %q: %w", index, err)
	}
	return tickers, nil
}

// ReadComponents reads a CSV with a "Ticker" column. Other columns are ignored.
func ReadComponents(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "Ticker" {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no Ticker column in %v", header)
	}
	var tickers []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return tickers, nil
		}
		if err != nil {
			return nil, err
		}
		if col >= len(record) {
			continue
		}
		if t := strings.TrimSpace(record[col]); t != "" {
			tickers = append(tickers, t)
		}
	}
}
