package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"IFCompiler/internal/models/configs"
	customErrors "IFCompiler/internal/models/errors"
	"IFCompiler/pkg/parsetree"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTreeService(t *testing.T, maxImages int) *TreeService {
	t.Helper()
	svc, err := StartTreeService(configs.TreeImageConfig{
		Enabled:   true,
		Directory: t.TempDir(),
		Format:    parsetree.FormatSVG,
		MaxImages: maxImages,
	}, log.New(io.Discard))
	require.NoError(t, err)

	svc.render = func(_ context.Context, dot string, _ parsetree.Format) ([]byte, error) {
		return []byte("<svg>" + dot + "</svg>"), nil
	}
	return svc
}

func TestRenderTree_StoresImage(t *testing.T) {
	t.Parallel()
	svc := newTestTreeService(t, 0)

	name, err := svc.RenderTree(context.Background(), "job-1", "digraph ParseTree {}")
	require.NoError(t, err)
	assert.Equal(t, "job-1.svg", name)

	path, contentType, err := svc.ImagePath(name)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", contentType)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<svg>digraph ParseTree {}</svg>", string(data))
}

func TestRenderTree_Disabled(t *testing.T) {
	t.Parallel()
	svc, err := StartTreeService(configs.TreeImageConfig{Directory: t.TempDir()}, log.New(io.Discard))
	require.NoError(t, err)

	name, err := svc.RenderTree(context.Background(), "job", "digraph {}")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestRenderTree_RenderError(t *testing.T) {
	t.Parallel()
	svc := newTestTreeService(t, 0)
	svc.render = func(context.Context, string, parsetree.Format) ([]byte, error) {
		return nil, errors.New("boom")
	}

	_, err := svc.RenderTree(context.Background(), "job", "digraph {}")
	assert.Error(t, err)
}

func TestRenderTree_PrunesOldest(t *testing.T) {
	t.Parallel()
	svc := newTestTreeService(t, 2)

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.RenderTree(context.Background(), id, "digraph {}")
		require.NoError(t, err)
		// make modification times distinguishable
		old := time.Now().Add(-time.Hour)
		if id == "a" {
			require.NoError(t, os.Chtimes(filepath.Join(svc.config.Directory, "a.svg"), old, old))
		}
	}

	_, _, err := svc.ImagePath("a.svg")
	assert.ErrorIs(t, err, customErrors.ErrNotFound)
	_, _, err = svc.ImagePath("c.svg")
	assert.NoError(t, err)
}

func TestImagePath_RejectsTraversal(t *testing.T) {
	t.Parallel()
	svc := newTestTreeService(t, 0)

	for _, name := range []string{"", "../etc/passwd", "a/b.svg", ".hidden.svg", "job.txt", "missing.svg"} {
		_, _, err := svc.ImagePath(name)
		assert.ErrorIs(t, err, customErrors.ErrNotFound, name)
	}
}
