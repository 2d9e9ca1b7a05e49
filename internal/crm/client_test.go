package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshline/contactsync/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(types.CRMConfig{BaseURL: server.URL, Token: "secret", RateLimit: 1000}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestListAllFollowsPages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("page") {
		case "1":
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{"id": 1, "first_name": "Alice"},
					{"id": 2, "first_name": "Bob"},
				},
				"meta": map[string]any{"last_page": 2},
			})
		case "2":
			writeJSON(w, map[string]any{
				"data": []map[string]any{{"id": 3, "first_name": "Carol"}},
				"meta": map[string]any{"last_page": 2},
			})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	c := newTestClient(t, handler)
	contacts, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, "3", contacts[2].ID)
	assert.Equal(t, "Carol", contacts[2].Name.First)
}

func TestRateLimitWaitsRetryAfter(t *testing.T) {
	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"id": 1, "first_name": "Alice"}})
	})

	c := newTestClient(t, handler)
	start := time.Now()
	_, err := c.Get(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)

	// The next attempt goes through.
	contact, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", contact.Name.First)
}

func TestGenderMappingCached(t *testing.T) {
	var genderCalls atomic.Int64
	var lastGenderID int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/genders":
			genderCalls.Add(1)
			writeJSON(w, map[string]any{"data": []map[string]any{
				{"id": 1, "type": "M"}, {"id": 2, "type": "F"}, {"id": 7, "type": "O"},
			}})
		case "/contacts":
			var req struct {
				GenderID int64 `json:"gender_id"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			lastGenderID = req.GenderID
			writeJSON(w, map[string]any{"data": map[string]any{"id": 5, "first_name": "Ada"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	c := newTestClient(t, handler)
	_, err := c.Create(context.Background(), ContactRequest{FirstName: "Ada", GenderType: "O"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), lastGenderID)

	_, err = c.Create(context.Background(), ContactRequest{FirstName: "Eda", GenderType: "O"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), genderCalls.Load(), "gender mapping should be fetched once")
}

func TestCreateFieldResolvesType(t *testing.T) {
	var typeCalls atomic.Int64
	var posted struct {
		ContactID int64  `json:"contact_id"`
		TypeID    int64  `json:"contact_field_type_id"`
		Data      string `json:"data"`
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contactfieldtypes":
			typeCalls.Add(1)
			writeJSON(w, map[string]any{"data": []map[string]any{
				{"id": 11, "type": "email"}, {"id": 12, "type": "phone"},
			}})
		case "/contactfields":
			json.NewDecoder(r.Body).Decode(&posted)
			writeJSON(w, map[string]any{})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	c := newTestClient(t, handler)
	require.NoError(t, c.CreateField(context.Background(), "42", "email", "a@example.com"))
	assert.Equal(t, int64(42), posted.ContactID)
	assert.Equal(t, int64(11), posted.TypeID)
	assert.Equal(t, "a@example.com", posted.Data)

	require.NoError(t, c.CreateField(context.Background(), "42", "phone", "+1 555"))
	assert.Equal(t, int64(12), posted.TypeID)
	assert.Equal(t, int64(1), typeCalls.Load(), "type mapping should be fetched once")

	err := c.CreateField(context.Background(), "42", "fax", "nope")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestContactDatesDecode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{
			"id": 9, "first_name": "Edith", "is_dead": true,
			"information": map[string]any{
				"career": map[string]any{"job": "Pilot", "company": "Air"},
				"dates": map[string]any{
					"birthdate": map[string]any{
						"date": "1904-06-15T00:00:00Z", "is_year_unknown": true,
					},
					"deceased_date": map[string]any{
						"date": "2019-03-04T00:00:00Z",
					},
				},
			},
		}})
	})

	c := newTestClient(t, handler)
	contact, err := c.Get(context.Background(), "9")
	require.NoError(t, err)

	assert.True(t, contact.IsDead)
	assert.Equal(t, "Pilot", contact.JobTitle)
	require.NotNil(t, contact.Birthday)
	assert.Zero(t, contact.Birthday.Year, "unknown year decodes as zero")
	assert.Equal(t, 6, contact.Birthday.Month)
	require.NotNil(t, contact.Deceased)
	assert.Equal(t, 2019, contact.Deceased.Year)
}

func TestServerErrorMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"message":"first_name required"}}`))
	})

	c := newTestClient(t, handler)
	_, err := c.Get(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))

	var re *types.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "crm", re.Service)
	assert.Equal(t, "first_name required", re.Message)
}
