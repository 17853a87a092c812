package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"IFCompiler/pkg/artifact"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolchainDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compiler.sh"), []byte("#!/bin/sh\n"), 0755))
	return dir
}

func TestPrepare_IsolatedWorkspacesAreDisjoint(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{
		ToolchainDirectory:   newToolchainDir(t),
		ArtifactSubdirectory: "lexical",
		InputFileName:        "input.c",
		Isolate:              true,
		Root:                 t.TempDir(),
	})
	require.NoError(t, err)

	a, err := m.Prepare(context.Background(), "a", "int a;")
	require.NoError(t, err)
	b, err := m.Prepare(context.Background(), "b", "int b;")
	require.NoError(t, err)

	assert.NotEqual(t, a.InputPath, b.InputPath)
	assert.True(t, a.Isolated())
	assert.FileExists(t, filepath.Join(a.Dir, "compiler.sh"))

	data, err := os.ReadFile(a.InputPath)
	require.NoError(t, err)
	assert.Equal(t, "int a;", string(data))
	assert.Equal(t, filepath.Join(a.Dir, "lexical", "input.c"), a.InputPath)

	a.Release()
	a.Release()
	_, err = os.Stat(a.Dir)
	assert.True(t, os.IsNotExist(err))
	assert.DirExists(t, b.Dir)
	b.Release()
}

func TestPrepare_IsolatedRootInsideToolchain(t *testing.T) {
	t.Parallel()

	tool := newToolchainDir(t)
	m, err := NewManager(Config{
		ToolchainDirectory: tool,
		InputFileName:      "input.c",
		Isolate:            true,
		Root:               filepath.Join(tool, "jobs"),
	})
	require.NoError(t, err)

	ws, err := m.Prepare(context.Background(), "x", "x")
	require.NoError(t, err)
	defer ws.Release()

	_, err = os.Stat(filepath.Join(ws.Dir, "jobs"))
	assert.True(t, os.IsNotExist(err))
}

func TestPrepare_SharedIsSingleWriter(t *testing.T) {
	t.Parallel()

	tool := newToolchainDir(t)
	m, err := NewManager(Config{
		ToolchainDirectory:   tool,
		ArtifactSubdirectory: "lexical",
		InputFileName:        "input.c",
		ArtifactNames:        artifact.DefaultNames(),
	})
	require.NoError(t, err)

	first, err := m.Prepare(context.Background(), "1", "first")
	require.NoError(t, err)
	assert.False(t, first.Isolated())
	require.NoError(t, os.WriteFile(filepath.Join(first.ArtifactDir, "parseTable"), []byte("stale"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Prepare(ctx, "2", "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	first.Release()

	second, err := m.Prepare(context.Background(), "2", "second")
	require.NoError(t, err)
	defer second.Release()

	assert.Equal(t, first.InputPath, second.InputPath)
	assert.NoFileExists(t, filepath.Join(second.ArtifactDir, "parseTable"))
	assert.DirExists(t, tool, "shared directory must survive release")
}

func TestNewManager_Validates(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{InputFileName: "input.c"})
	assert.Error(t, err)

	_, err = NewManager(Config{ToolchainDirectory: t.TempDir()})
	assert.Error(t, err)
}
