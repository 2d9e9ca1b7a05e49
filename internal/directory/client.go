// Package directory implements the client for the source-side contact
// directory API: paginated listing, incremental listing by sync token, and
// record CRUD.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshline/contactsync/pkg/types"
)

const (
	defaultPageSize = 500
	requestTimeout  = 30 * time.Second

	// quotaWait is how long to pause when the directory reports quota
	// exhaustion. Its quota window is per minute and responses carry no
	// Retry-After header.
	quotaWait = 60 * time.Second
)

// Client talks to the directory API. All methods are synchronous and safe
// for the single-threaded engine; the call counter is atomic only so the
// stats reader may run after the fact.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	pageSize int
	log      zerolog.Logger

	apiCalls atomic.Int64
}

// New creates a directory client from the given configuration.
func New(cfg types.DirectoryConfig, log zerolog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		http:     &http.Client{Timeout: requestTimeout},
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pageSize: pageSize,
		log:      log.With().Str("component", "directory").Logger(),
	}
}

// APICalls returns the number of requests issued so far.
func (c *Client) APICalls() int64 {
	return c.apiCalls.Load()
}

// do issues one request and decodes the JSON response into out (when out
// is non-nil). Non-2xx statuses map to *types.RemoteError; quota errors
// wait out the window and report as retryable.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
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
		return &types.RemoteError{Service: "directory", Message: err.Error(), Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn().Dur("wait", quotaWait).Msg("directory quota exceeded, waiting")
		select {
		case <-time.After(quotaWait):
		case <-ctx.Done():
			return ctx.Err()
		}
		return &types.RemoteError{Service: "directory", Status: resp.StatusCode,
			Message: "quota exceeded", Retryable: true}
	}
	if resp.StatusCode == http.StatusGone {
		// The sync token was rejected as expired.
		return fmt.Errorf("directory rejected sync token: %w", types.ErrCursorExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readError(resp.Body)
		return &types.RemoteError{
			Service:   "directory",
			Status:    resp.StatusCode,
			Message:   msg,
			Retryable: resp.StatusCode >= 500,
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

func (c *Client) listPath(pageToken, syncToken string, requestSyncToken bool) string {
	path := "/contacts?page_size=" + strconv.Itoa(c.pageSize)
	if pageToken != "" {
		path += "&page_token=" + pageToken
	}
	if syncToken != "" {
		path += "&sync_token=" + syncToken
	}
	if requestSyncToken {
		path += "&request_sync_token=true"
	}
	return path
}
