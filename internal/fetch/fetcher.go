package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Session carries cookies returned by the origin across sequential requests
// of a single run. It is threaded through Fetch calls explicitly and
// discarded when the run finishes; never shared across runs.
type Session struct {
	cookies []*http.Cookie
}

// NewSession returns an empty per-run session.
func NewSession() *Session {
	return &Session{}
}

// merge replaces stored cookies that were re-issued and appends new ones.
func (s *Session) merge(fresh []*http.Cookie) *Session {
	if len(fresh) == 0 {
		return s
	}
	next := &Session{cookies: make([]*http.Cookie, 0, len(s.cookies)+len(fresh))}
	replaced := make(map[string]bool, len(fresh))
	for _, c := range fresh {
		replaced[c.Name] = true
	}
	for _, c := range s.cookies {
		if !replaced[c.Name] {
			next.cookies = append(next.cookies, c)
		}
	}
	next.cookies = append(next.cookies, fresh...)
	return next
}

// Cookies exposes the captured cookies, mostly for tests.
func (s *Session) Cookies() []*http.Cookie {
	return s.cookies
}

// Fetcher performs HTTP retrieval with bounded retry and per-run cookie
// continuity.
type Fetcher struct {
	client    *http.Client
	policy    Policy
	userAgent string
}

// NewFetcher creates a Fetcher with the given retry policy.
func NewFetcher(policy Policy, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		policy:    policy,
		userAgent: userAgent,
	}
}

// Fetch retrieves url, replaying the session's cookies and capturing any the
// origin sets. Non-2xx responses and network errors are retried per the
// policy; the final failure is returned, not swallowed.
func (f *Fetcher) Fetch(ctx context.Context, url string, session *Session) ([]byte, *Session, error) {
	if session == nil {
		session = NewSession()
	}

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, session, ctx.Err()
			case <-time.After(f.policy.Backoff(attempt - 1)):
			}
		}

		body, updated, err := f.fetchOnce(ctx, url, session)
		if err == nil {
			return body, updated, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, session, lastErr
		}
	}

	return nil, session, fmt.Errorf("fetch %s after %d attempts: %w", url, f.policy.MaxAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, session *Session) ([]byte, *Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, session, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	for _, c := range session.cookies {
		req.AddCookie(c)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, session, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	updated := session.merge(resp.Cookies())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, updated, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, updated, fmt.Errorf("read body: %w", err)
	}

	return body, updated, nil
}
