package row_source

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/filter"
	"github.com/prsense/ghingest/types"
)

func eventLine(id, repo, kind, actor string) string {
	return fmt.Sprintf(`{"id":%q,"type":%q,"actor":{"login":%q},"repo":{"name":%q},"created_at":"2024-01-02T10:00:00Z","payload":{}}`,
		id, kind, actor, repo)
}

// newGharchiveSource builds an initialised source pointing at baseURL.
func newGharchiveSource(t *testing.T, baseURL string) RowSource {
	t.Helper()
	hcl := fmt.Sprintf(`
filter {
  repositories = ["expressjs/express"]
}
source "gharchive" {
  base_url        = %q
  max_concurrency = 2
  max_retries     = 1
}
`, baseURL)
	c, err := config.Parse([]byte(hcl), "test.hcl")
	require.NoError(t, err)

	f := NewFactory()
	require.NoError(t, f.RegisterRowSources(NewGharchiveSource))
	source, err := f.GetRowSource(context.Background(), "gharchive", c.SourceConfigData("gharchive"))
	require.NoError(t, err)
	return source
}

func testRequest() *CollectRequest {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &CollectRequest{
		From:   day,
		To:     day,
		Filter: filter.NewSpec([]string{"expressjs/express"}, []types.EventKind{types.KindIssueComment}),
	}
}

func drain(t *testing.T, stream *RowStream) []*types.RawEvent {
	t.Helper()
	var events []*types.RawEvent
	for {
		event, ok := stream.Recv()
		if !ok {
			break
		}
		events = append(events, event)
	}
	require.NoError(t, stream.Err())
	return events
}

func TestGharchiveSource_Collect(t *testing.T) {
	var mu sync.Mutex
	requested := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested[r.URL.Path]++
		mu.Unlock()

		// only hour 10 has data; other hours are unpublished
		if r.URL.Path != "/2024-01-02-10.json.gz" {
			http.NotFound(w, r)
			return
		}
		gz := gzip.NewWriter(w)
		fmt.Fprintln(gz, eventLine("1", "expressjs/express", "IssueCommentEvent", "alice"))
		fmt.Fprintln(gz, eventLine("2", "expressjs/express-session", "IssueCommentEvent", "bob"))
		fmt.Fprintln(gz, eventLine("3", "expressjs/express", "PushEvent", "carol"))
		fmt.Fprintln(gz, eventLine("4", "expressjs/express", "IssueCommentEvent", "dave"))
		gz.Close()
	}))
	defer server.Close()

	source := newGharchiveSource(t, server.URL)
	defer source.Close()

	stream, err := source.Collect(context.Background(), testRequest())
	require.NoError(t, err)
	events := drain(t, stream)

	// only exact (entity, kind) members pass the filter
	require.Len(t, events, 2)
	ids := []string{events[0].Id, events[1].Id}
	assert.ElementsMatch(t, []string{"1", "4"}, ids)

	stats := stream.Stats()
	assert.Equal(t, 24, stats.UnitsFetched)
	assert.Empty(t, stats.SkippedUnits)
	assert.Equal(t, 2, stats.RowsMatched)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, requested, 24)
}

func TestGharchiveSource_CollectIsRestartable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2024-01-02-0.json.gz" {
			http.NotFound(w, r)
			return
		}
		gz := gzip.NewWriter(w)
		fmt.Fprintln(gz, eventLine("1", "expressjs/express", "IssueCommentEvent", "alice"))
		gz.Close()
	}))
	defer server.Close()

	source := newGharchiveSource(t, server.URL)
	defer source.Close()

	// the same request re-executes the fetch - no hidden already-read state
	for run := 0; run < 2; run++ {
		stream, err := source.Collect(context.Background(), testRequest())
		require.NoError(t, err)
		events := drain(t, stream)
		require.Len(t, events, 1, "run %d", run)
		assert.Equal(t, "1", events[0].Id)
	}
}

func TestGharchiveSource_BadHourIsSkippedNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2024-01-02-5.json.gz" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	source := newGharchiveSource(t, server.URL)
	defer source.Close()

	stream, err := source.Collect(context.Background(), testRequest())
	require.NoError(t, err)
	events := drain(t, stream)

	assert.Empty(t, events)
	stats := stream.Stats()
	assert.Equal(t, 23, stats.UnitsFetched)
	assert.Equal(t, []string{"2024-01-02-5"}, stats.SkippedUnits)
}

func TestGharchiveSource_CloseStopsFetching(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz := gzip.NewWriter(w)
		for i := 0; i < 500; i++ {
			fmt.Fprintln(gz, eventLine(fmt.Sprintf("%d", i), "expressjs/express", "IssueCommentEvent", "alice"))
		}
		gz.Close()
	}))
	defer server.Close()

	source := newGharchiveSource(t, server.URL)
	defer source.Close()

	stream, err := source.Collect(context.Background(), testRequest())
	require.NoError(t, err)

	// consume a handful of rows then abandon the stream
	for i := 0; i < 5; i++ {
		_, ok := stream.Recv()
		require.True(t, ok)
	}
	stream.Close()
}
