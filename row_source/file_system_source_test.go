package row_source

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/prsense/ghingest/config"
)

func sourceBody(t *testing.T, src string) hcl.Body {
	t.Helper()
	file, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	return file.Body
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

func TestFileSystemSource_Collect(t *testing.T) {
	dir := t.TempDir()
	writeHourFile(t, dir, "2024-01-02-10.json.gz",
		eventLine("1", "expressjs/express", "IssueCommentEvent", "alice"),
		eventLine("2", "golang/go", "IssueCommentEvent", "bob"),
	)
	// outside the requested range
	writeHourFile(t, dir, "2024-02-01-0.json.gz",
		eventLine("3", "expressjs/express", "IssueCommentEvent", "carol"),
	)
	// not an hour file, ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0600))

	f := NewFactory()
	require.NoError(t, f.RegisterRowSources(NewFileSystemSource))
	configData := &config.SourceConfigData{
		Type: FileSystemSourceIdentifier,
		Body: sourceBody(t, `paths = ["`+dir+`"]`),
	}
	source, err := f.GetRowSource(context.Background(), FileSystemSourceIdentifier, configData)
	require.NoError(t, err)
	defer source.Close()

	stream, err := source.Collect(context.Background(), testRequest())
	require.NoError(t, err)
	events := drain(t, stream)

	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Id)
	stats := stream.Stats()
	assert.Equal(t, 1, stats.UnitsFetched)
}

func TestFileSystemSource_RequiresPaths(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.RegisterRowSources(NewFileSystemSource))
	_, err := f.GetRowSource(context.Background(), FileSystemSourceIdentifier, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths is required")
}
