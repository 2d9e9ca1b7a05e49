// Package crm implements the client for the target-side
// relationship-management API: paginated contact listing, contact CRUD,
// and the subresources the field sync touches (notes, contact fields,
// addresses, tags, genders).
//
// The CRM enforces a global per-account rate limit, so every call goes
// through one limiter and mutating calls are additionally serialized.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/meshline/contactsync/pkg/types"
)

const requestTimeout = 30 * time.Second

// Client talks to the CRM API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	log     zerolog.Logger

	// mu serializes mutating calls; the per-account rate limit makes
	// concurrent mutation counterproductive.
	mu sync.Mutex

	// Cached id mappings, fetched lazily once per run.
	genderIDs    map[string]int64
	fieldTypeIDs map[string]int64

	apiCalls atomic.Int64
}

// New creates a CRM client from the given configuration.
func New(cfg types.CRMConfig, log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		log:     log.With().Str("component", "crm").Logger(),
	}
}

// APICalls returns the number of requests issued so far.
func (c *Client) APICalls() int64 {
	return c.apiCalls.Load()
}

// do issues one throttled request and decodes the JSON response into out
// (when out is non-nil). A 429 waits out the advertised Retry-After and
// reports as retryable; 5xx and transport failures are retryable too.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	c.apiCalls.Add(1)
	if err != nil {
		return &types.RemoteError{Service: "crm", Message: err.Error(), Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		c.log.Warn().Dur("wait", wait).Msg("crm rate limit hit, waiting")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		return &types.RemoteError{Service: "crm", Status: resp.StatusCode,
			Message: "too many requests", Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readError(resp.Body)
		status := resp.StatusCode
		return &types.RemoteError{
			Service:   "crm",
			Status:    status,
			Message:   msg,
			Retryable: status >= 500,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// mutate serializes a mutating call.
func (c *Client) mutate(ctx context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.do(ctx, method, path, body, out)
}

// retryAfter reads the Retry-After header of a 429, defaulting to one
// second when it is absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// readError extracts the error message from a failed response body.
func readError(body io.Reader) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error body"
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return string(raw)
}
