package extract

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/row_source"
	"github.com/prsense/ghingest/store"
	"github.com/prsense/ghingest/types"
)

// fakeWriter records upsert batches and treats every id as new once.
type fakeWriter struct {
	batches [][]*types.RawEvent
	seen    map[string]struct{}
	err     error
}

func (w *fakeWriter) UpsertRaw(_ context.Context, events []*types.RawEvent) (store.UpsertResult, error) {
	if w.err != nil {
		return store.UpsertResult{}, w.err
	}
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	w.batches = append(w.batches, events)
	var res store.UpsertResult
	for _, e := range events {
		if _, ok := w.seen[e.Id]; ok {
			res.AlreadyPresent++
			continue
		}
		w.seen[e.Id] = struct{}{}
		res.Inserted++
	}
	return res, nil
}

func eventLine(id, repo, actor string) string {
	return fmt.Sprintf(`{"id":%q,"type":"IssueCommentEvent","actor":{"login":%q},"repo":{"name":%q},"created_at":"2024-01-02T10:00:00Z","payload":{"comment":{"body":"needs more tests"}}}`,
		id, actor, repo)
}

func writeHourFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err = gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func testConfig(t *testing.T, dir string, batchSize int) *config.Config {
	t.Helper()
	hcl := fmt.Sprintf(`
filter {
  repositories = ["expressjs/express"]
}

extraction {
  source     = "file_system"
  start_date = "2024-01-02"
  end_date   = "2024-01-02"
  batch_size = %d
}

source "file_system" {
  paths = [%q]
}
`, batchSize, dir)
	cfg, err := config.Parse([]byte(hcl), "test.hcl")
	require.NoError(t, err)
	return cfg
}

func newTestFactory(t *testing.T) *row_source.Factory {
	t.Helper()
	f := row_source.NewFactory()
	require.NoError(t, f.RegisterRowSources(row_source.NewFileSystemSource))
	return f
}

func TestRunIngestsFilteredEvents(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "alice"),
		eventLine("2", "golang/go", "carol"),
		eventLine("3", "expressjs/express", "dave"),
	)

	writer := &fakeWriter{}
	e := New(newTestFactory(t), writer, testConfig(t, dir, 10), nil)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UnitsFetched)
	assert.Equal(t, 2, summary.RowsMatched)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Empty(t, summary.SkippedUnits)
}

func TestRunBatchesUpserts(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "alice"),
		eventLine("2", "expressjs/express", "carol"),
		eventLine("3", "expressjs/express", "dave"),
	)

	writer := &fakeWriter{}
	e := New(newTestFactory(t), writer, testConfig(t, dir, 2), nil)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Inserted)
	require.Len(t, writer.batches, 2)
	assert.Len(t, writer.batches[0], 2)
	assert.Len(t, writer.batches[1], 1)
}

func TestRunCountsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "alice"),
	)
	writeHourFile(t, dir, "2024-01-02-11.json.gz",
		eventLine("1", "expressjs/express", "alice"),
	)

	writer := &fakeWriter{}
	e := New(newTestFactory(t), writer, testConfig(t, dir, 10), nil)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "alice"),
	)

	writer := &fakeWriter{err: fmt.Errorf("database file is locked")}
	e := New(newTestFactory(t), writer, testConfig(t, dir, 10), nil)

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store events")
}

func TestRunRequiresFilter(t *testing.T) {
	cfg, err := config.Parse([]byte(`store { path = "/tmp/ghingest-test/events.db" }`), "test.hcl")
	require.NoError(t, err)
	cfg.Extraction = &config.ExtractionConfig{
		Source:    "file_system",
		StartDate: "2024-01-02",
		EndDate:   "2024-01-02",
	}

	e := New(newTestFactory(t), &fakeWriter{}, cfg, nil)
	_, err = e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter block is required")
}

func TestRunUnknownSource(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, 10)
	cfg.Extraction.Source = "teleport"

	e := New(row_source.NewFactory(), &fakeWriter{}, cfg, nil)
	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source not registered")
}

func TestRunAgainstRealStore(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "alice"),
		eventLine("2", "expressjs/express", "carol"),
	)

	db, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer db.Close()

	e := New(newTestFactory(t), db, testConfig(t, dir, 10), nil)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	// second run over the same range inserts nothing new
	e = New(newTestFactory(t), db, testConfig(t, dir, 10), nil)
	summary, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)
}
