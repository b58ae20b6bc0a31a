// Package measure provides the measurement collaborators of a run: a
// reachability probe, a client presence scanner and a traffic analyzer,
// plus neutral fallbacks used when a measurement source is not configured.
package measure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds a single probe request.
const DefaultRequestTimeout = 2 * time.Second

// HTTPProbe measures reachability as successful GET round trips per second.
// A response with status below 400 counts as a success.
type HTTPProbe struct {
	url        string
	httpClient *http.Client
}

// NewHTTPProbe creates a probe against url. A zero timeout uses DefaultRequestTimeout.
func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPProbe{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Measure issues requests back to back until the window elapses and returns
// successes per second. A non-positive window issues a single request and
// returns 1 or 0.
func (p *HTTPProbe) Measure(ctx context.Context, window time.Duration) (float64, error) {
	if window <= 0 {
		if p.try(ctx) {
			return 1, nil
		}
		return 0, ctx.Err()
	}

	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	successes := 0
	for wctx.Err() == nil {
		if p.try(wctx) {
			successes++
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rate := float64(successes) / window.Seconds()
	logrus.Debugf("probe %s: %d successes in %v (%.2f/s)", p.url, successes, window, rate)
	return rate, nil
}

// try performs one round trip. Failed attempts back off briefly so a dead
// target does not spin the loop.
func (p *HTTPProbe) try(ctx context.Context) bool {
	ok, err := p.get(ctx)
	if err != nil && ctx.Err() == nil {
		logrus.Debugf("probe %s: %v", p.url, err)
		select {
		case <-ctx.Done():
		case <-time.After(50 * time.Millisecond):
		}
	}
	return ok
}

func (p *HTTPProbe) get(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return false, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return false, errors.New(resp.Status)
	}
	return true, nil
}
