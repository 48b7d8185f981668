package archive

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prsense/ghingest/types"
)

func gzipBody(t *testing.T, w http.ResponseWriter, lines ...string) {
	t.Helper()
	gz := gzip.NewWriter(w)
	_, err := gz.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}

const (
	eventA = `{"id":"100","type":"IssueCommentEvent","actor":{"login":"alice"},"repo":{"name":"expressjs/express"},"created_at":"2024-01-02T15:04:05Z","payload":{"comment":{"body":"hi"}}}`
	eventB = `{"id":"101","type":"PullRequestEvent","actor":{"login":"bob"},"repo":{"name":"golang/go"},"created_at":"2024-01-02T15:05:00Z","payload":{}}`
)

func testUnit() HourUnit {
	return HourUnit{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Hour: 15}
}

func TestClient_FetchHour(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024-01-02-15.json.gz", r.URL.Path)
		gzipBody(t, w, eventA, "", "not json at all", eventB)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	cursor, err := client.FetchHour(context.Background(), testUnit())
	require.NoError(t, err)
	defer cursor.Close()

	var events []*types.RawEvent
	for cursor.Next() {
		events = append(events, cursor.Event())
	}
	require.NoError(t, cursor.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "100", events[0].Id)
	assert.Equal(t, "expressjs/express", events[0].Entity)
	assert.Equal(t, types.KindIssueComment, events[0].Kind)
	assert.Equal(t, "alice", events[0].Actor)
	assert.JSONEq(t, eventA, string(events[0].Payload))
	assert.Equal(t, "101", events[1].Id)
	// the malformed line is skipped and counted, not fatal
	assert.Equal(t, 1, cursor.ParseErrors())
}

func TestClient_FetchHour_AbsentHourIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	cursor, err := client.FetchHour(context.Background(), testUnit())
	require.NoError(t, err)
	defer cursor.Close()

	assert.False(t, cursor.Next())
	assert.NoError(t, cursor.Err())
}

func TestClient_FetchHour_RetriesThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		gzipBody(t, w, eventA)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(3))
	// shrink the backoff so the test is quick
	client.retryInitial = time.Millisecond
	client.retryMax = 2 * time.Millisecond

	cursor, err := client.FetchHour(context.Background(), testUnit())
	require.NoError(t, err)
	defer cursor.Close()

	assert.Equal(t, 3, calls)
	assert.True(t, cursor.Next())
	assert.Equal(t, "100", cursor.Event().Id)
}

func TestClient_FetchHour_ExhaustedRetriesSurfaceError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(2))
	client.retryInitial = time.Millisecond
	client.retryMax = 2 * time.Millisecond

	_, err := client.FetchHour(context.Background(), testUnit())
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "failed to fetch hour 2024-01-02-15")
}
