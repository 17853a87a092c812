package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Read(filepath.Join(t.TempDir(), "nope")))
}

func TestRead_DirectoryIsEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Read(t.TempDir()))
}

func TestRead_NormalizesLineEndings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "parsetree.txt")
	require.NoError(t, os.WriteFile(path, []byte("A\r\n  B\r  C\n"), 0644))

	assert.Equal(t, "A\n  B\n  C\n", Read(path))
}

func TestReadSet_PartialOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parseTable"), []byte("int | KEYWORD | - | 1\n"), 0644))

	set, err := ReadSet(context.Background(), dir, DefaultNames())
	require.NoError(t, err)

	assert.Equal(t, "int | KEYWORD | - | 1\n", set.Get(Tokens))
	assert.Equal(t, "", set.Get(Symbols))
	assert.Equal(t, "", set.Get(Constants))
	assert.Equal(t, "", set.Get(Tree))
	assert.Len(t, set, len(Roles))
}

func TestReadSet_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadSet(ctx, t.TempDir(), DefaultNames())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemove_ClearsStaleArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range DefaultNames() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0644))
	}

	Remove(dir, DefaultNames())

	set, err := ReadSet(context.Background(), dir, DefaultNames())
	require.NoError(t, err)
	for _, role := range Roles {
		assert.Empty(t, set.Get(role), role)
	}
}
