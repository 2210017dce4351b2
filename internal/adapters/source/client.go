// Package source fetches the catalogue spreadsheet from disk or over HTTP.
package source

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/domain"
)

// maxBody caps a downloaded export.
const maxBody = 32 << 20

var (
	ErrUnauthorized = errors.New("source: unauthorized")
	ErrForbidden    = errors.New("source: forbidden")
	ErrTooLarge     = errors.New("source: body too large")
)

type Client struct {
	hc  *http.Client
	rl  *rate.Limiter
	max int64
}

func New(rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		hc:  &http.Client{Timeout: 60 * time.Second},
		rl:  rate.NewLimiter(rate.Limit(rps), rps),
		max: maxBody,
	}
}

// WithMaxBody overrides the download cap; n <= 0 keeps the default.
func (c *Client) WithMaxBody(n int64) *Client {
	if n > 0 {
		c.max = n
	}
	return c
}

// IsRemote reports whether input names an http(s) URL rather than a path.
func IsRemote(input string) bool {
	s := strings.ToLower(input)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Read returns the text of input: a local file, or a URL fetched through the
// client. A missing file or a 404 is domain.ErrInputNotFound.
func (c *Client) Read(ctx context.Context, input string) (string, error) {
	if IsRemote(input) {
		return c.Fetch(ctx, input)
	}
	b, err := os.ReadFile(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrInputNotFound, input)
		}
		return "", err
	}
	return string(b), nil
}

// Fetch performs a GET with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
		req.Header.Set("User-Agent", "imperium-gate-ingestor/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveFetch(u.Host, 0, time.Since(start))
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", lastErr
		}
		observability.ObserveFetch(u.Host, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			// one byte past the cap tells a full body from a truncated one
			b, err := io.ReadAll(io.LimitReader(resp.Body, c.max+1))
			resp.Body.Close()
			if err != nil {
				return "", fmt.Errorf("read body: %w", err)
			}
			if int64(len(b)) > c.max {
				return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rawURL, c.max)
			}
			log.Debug().Str("host", u.Host).Int("bytes", len(b)).Msg("spreadsheet downloaded")
			return string(b), nil

		case http.StatusNotFound, http.StatusGone:
			resp.Body.Close()
			return "", fmt.Errorf("%w: %s", domain.ErrInputNotFound, rawURL)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return "", ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return "", ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			log.Debug().Int("status", resp.StatusCode).Dur("wait", wait).Msg("retrying download")
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return "", lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date); 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
