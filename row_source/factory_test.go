package row_source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_RegisterRowSources(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.RegisterRowSources(NewGharchiveSource, NewFileSystemSource))
	assert.Equal(t, []string{"file_system", "gharchive"}, f.SourceNames())

	t.Run("Duplicate Registration Fails", func(t *testing.T) {
		err := f.RegisterRowSources(NewGharchiveSource)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered: gharchive")
	})
}

func TestFactory_GetRowSource(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.RegisterRowSources(NewGharchiveSource))

	t.Run("Known Source Is Constructed And Initialised", func(t *testing.T) {
		source, err := f.GetRowSource(context.Background(), "gharchive", nil)
		require.NoError(t, err)
		assert.Equal(t, "gharchive", source.Identifier())
	})

	t.Run("Unknown Source Lists Registered Names", func(t *testing.T) {
		_, err := f.GetRowSource(context.Background(), "bigquery", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source not registered: bigquery")
		assert.Contains(t, err.Error(), "gharchive")
	})
}
