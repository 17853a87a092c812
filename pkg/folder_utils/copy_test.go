package folderutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lexical"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "compiler.sh"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lexical", "lexer.l"), []byte("%%"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "jobs", "old"), 0755))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst, filepath.Join(src, "jobs")))

	info, err := os.Stat(filepath.Join(dst, "compiler.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(dst, "lexical", "lexer.l"))
	require.NoError(t, err)
	assert.Equal(t, "%%", string(data))

	_, err = os.Stat(filepath.Join(dst, "jobs"))
	assert.True(t, os.IsNotExist(err))
}

func TestCopyDir_MissingSource(t *testing.T) {
	t.Parallel()

	err := CopyDir(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
}
