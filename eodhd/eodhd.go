// Package eodhd downloads daily prices from eodhd.com into a price directory.
//
// Prices are saved as the end of day document the API returns, in <TICKER>.json, a file that
// backtester.LoadPriceDir reads.
package eodhd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	log "github.com/sirupsen/logrus"
)

// BaseURL is the address of the EODHD API.
const BaseURL = "https://eodhd.com/api"

// Client downloads end of day prices.
type Client struct {
	APIKey   string
	Exchange string // EODHD exchange code appended to tickers without one, "US" if empty.
	BaseURL  string // BaseURL if empty.
	HTTP     *http.Client
}

// NewClient returns a Client caching its responses in cacheDir for the day.
func NewClient(apiKey, cacheDir string) *Client {
	return &Client{APIKey: apiKey, HTTP: newDailyCachingClient(cacheDir)}
}

// symbol returns the EODHD ticker: "SYMBOL.EXCHANGECODE".
func (c *Client) symbol(ticker string) string {
	if strings.Contains(ticker, ".") {
		return ticker
	}
	exchange := c.Exchange
	if exchange == "" {
		exchange = "US"
	}
	return ticker + "." + exchange
}

// Daily returns the end of day document of ticker within window, as a JSON array of
//
//	{"date": "2024-02-13", "open": 675.066, "high": 684.219, "low": 648.659, "close": 668.445, "adjusted_close": 67.705, "volume": 0}
//
// An open bound of window is not sent.
func (c *Client) Daily(ctx context.Context, ticker string, window date.Range) ([]byte, error) {
	base := c.BaseURL
	if base == "" {
		base = BaseURL
	}
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.APIKey)
	if !window.From.IsZero() {
		q.Set("from", window.From.String())
	}
	if !window.To.IsZero() {
		q.Set("to", window.To.String())
	}
	addr := fmt.Sprintf("%s/eod/%s?%s", base, url.PathEscape(c.symbol(ticker)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Download saves the daily prices of ticker in dir/<ticker>.json and returns the number of prices.
// A document that LoadPriceJSON cannot read is not saved.
func (c *Client) Download(ctx context.Context, dir, ticker string, window date.Range) (int, error) {
	doc, err := c.Daily(ctx, ticker, window)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ticker, err)
	}
	h, err := backtester.LoadPriceJSON(bytes.NewReader(doc), backtester.EODDatesPath, backtester.EODClosePath)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid end of day document: %w", ticker, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	p := filepath.Join(dir, ticker+".json")
	if err := os.WriteFile(p, doc, 0644); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"ticker": ticker, "file": p, "prices": h.Len()}).Debug("prices downloaded")
	return h.Len(), nil
}
