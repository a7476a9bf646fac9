package eodhd

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/backtester/date"
	log "github.com/sirupsen/logrus"
)

// diskCache caches successful HTTP responses on disk for the day.
type diskCache struct {
	base  http.RoundTripper
	dir   string
	today func() date.Date
}

// RoundTrip implements http.RoundTripper. A response cached today is returned as is, otherwise the
// request is sent and a successful response is cached.
func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	// the key changes every day, so the cache expires every day.
	key := fmt.Sprintf("%s %s %s", c.today(), req.Method, req.URL.String())
	key = fmt.Sprintf("bt-%x", sha1.Sum([]byte(key)))

	if resp, err := c.get(key, req); err == nil {
		log.WithField("url", req.URL.Path).Debug("cache hit")
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"method": req.Method, "host": req.URL.Host, "path": req.URL.Path, "status": resp.Status}).Debug("http request")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		log.WithError(err).Warn("cache write failed (ignored)")
	}
	return resp, nil
}

func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp on disk. DumpResponse leaves resp.Body readable.
func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0644)
}

// newDailyCachingClient returns a client that caches responses in dir for the day.
func newDailyCachingClient(dir string) *http.Client {
	if dir == "" {
		dir = os.TempDir()
	}
	return &http.Client{Transport: &diskCache{base: http.DefaultTransport, dir: dir, today: date.Today}}
}
