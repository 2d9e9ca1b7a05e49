package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshline/contactsync/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(types.DirectoryConfig{BaseURL: server.URL, Token: "secret", PageSize: 2}, zerolog.Nop())
}

func TestListAllFollowsPagination(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))
		assert.Equal(t, "true", r.URL.Query().Get("request_sync_token"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page_token") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"contacts": []map[string]any{
					{"id": "people/1", "names": map[string]any{"given": "Alice"}},
					{"id": "people/2", "names": map[string]any{"given": "Bob"}},
				},
				"next_page_token": "page-2",
			})
		case "page-2":
			json.NewEncoder(w).Encode(map[string]any{
				"contacts": []map[string]any{
					{"id": "people/3", "names": map[string]any{"given": "Carol"}},
				},
				"next_sync_token": "tok-99",
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("page_token"))
		}
	})

	c := newTestClient(t, handler)
	contacts, token, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "tok-99", token)
	require.Len(t, contacts, 3)
	assert.Equal(t, "people/3", contacts[2].ID)
	assert.Equal(t, int64(2), c.APICalls())
}

func TestListChangedRejectedToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stale", r.URL.Query().Get("sync_token"))
		w.WriteHeader(http.StatusGone)
	})

	c := newTestClient(t, handler)
	_, _, err := c.ListChanged(context.Background(), "stale")
	require.ErrorIs(t, err, types.ErrCursorExpired)
}

func TestListChangedEmptyToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	_, _, err := c.ListChanged(context.Background(), "")
	require.ErrorIs(t, err, types.ErrCursorExpired)
}

func TestListChangedTombstones(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"contacts": []map[string]any{
				{"id": "people/1", "deleted": true},
				{"id": "people/2", "names": map[string]any{"given": "Bob"}},
			},
			"next_sync_token": "tok-2",
		})
	})

	c := newTestClient(t, handler)
	contacts, token, err := c.ListChanged(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	require.Len(t, contacts, 2)
	assert.True(t, contacts[0].Deleted)
	assert.False(t, contacts[1].Deleted)
}

func TestServerErrorIsRetryable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"backend down"}}`))
	})

	c := newTestClient(t, handler)
	_, _, err := c.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))

	var re *types.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "directory", re.Service)
	assert.Equal(t, http.StatusBadGateway, re.Status)
	assert.Equal(t, "backend down", re.Message)
}

func TestClientErrorIsPermanent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"no scope"}}`))
	})

	c := newTestClient(t, handler)
	_, err := c.Get(context.Background(), "people/1")
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
}

func TestContactRoundTrip(t *testing.T) {
	// The wire organization folds department into the company field.
	var posted wireContact
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		posted.ID = "people/7"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(posted)
	})

	c := newTestClient(t, handler)
	created, err := c.Create(context.Background(), types.Contact{
		Name:     types.Name{First: "Ada", Last: "Lovelace", Display: "Ada Lovelace"},
		Birthday: &types.Date{Year: 1815, Month: 12, Day: 10},
		JobTitle: "Mathematician",
		Company:  "Analytical Engines",
		Phones:   []types.LabeledValue{{Label: "Home", Value: "+44 1"}},
		Labels:   []string{"science"},
		Notes:    []types.Note{{Body: "first programmer"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "people/7", created.ID)
	assert.Equal(t, "Ada", created.Name.First)
	require.NotNil(t, created.Birthday)
	assert.Equal(t, 1815, created.Birthday.Year)
	assert.Equal(t, "Mathematician", created.JobTitle)
	assert.Equal(t, "Analytical Engines", created.Company)
	assert.Equal(t, []string{"science"}, created.Labels)
	require.Len(t, created.Notes, 1)
}
