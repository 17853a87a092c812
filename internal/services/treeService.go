package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"IFCompiler/internal/models/configs"
	customErrors "IFCompiler/internal/models/errors"
	"IFCompiler/pkg/parsetree"

	"github.com/charmbracelet/log"
)

// renderFunc is parsetree.Render; tests swap it to avoid running Graphviz.
type renderFunc func(ctx context.Context, dot string, format parsetree.Format) ([]byte, error)

type TreeService struct {
	config configs.TreeImageConfig
	render renderFunc
	logger *log.Logger

	// mu serializes writes and pruning of the image directory.
	mu sync.Mutex
}

func StartTreeService(config configs.TreeImageConfig, logger *log.Logger) (*TreeService, error) {
	if config.Format == "" {
		config.Format = parsetree.FormatSVG
	}
	if logger == nil {
		logger = log.Default()
	}
	if config.Directory != "" {
		if err := os.MkdirAll(config.Directory, 0755); err != nil {
			return nil, fmt.Errorf("create tree image directory: %w", err)
		}
	}

	return &TreeService{
		config: config,
		render: parsetree.Render,
		logger: logger,
	}, nil
}

func (s *TreeService) Enabled() bool {
	return s.config.Enabled && s.config.Directory != ""
}

// RenderTree renders dot and stores it as <jobID><ext>, returning the file name.
func (s *TreeService) RenderTree(ctx context.Context, jobID, dot string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	img, err := s.render(ctx, dot, s.config.Format)
	if err != nil {
		return "", err
	}

	name := jobID + s.config.Format.Extension()
	path := filepath.Join(s.config.Directory, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.config.Directory, ".render-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	s.prune()
	return name, nil
}

// prune removes the oldest images beyond MaxImages. Callers hold mu.
func (s *TreeService) prune() {
	if s.config.MaxImages <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.Directory)
	if err != nil {
		s.logger.Warn("[Tree] Listing images failed", "err", err)
		return
	}

	type image struct {
		name string
		mod  int64
	}
	var images []image
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.config.Format.Extension()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, image{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(images) <= s.config.MaxImages {
		return
	}

	sort.Slice(images, func(i, j int) bool { return images[i].mod < images[j].mod })
	for _, img := range images[:len(images)-s.config.MaxImages] {
		if err := os.Remove(filepath.Join(s.config.Directory, img.name)); err != nil {
			s.logger.Warn("[Tree] Removing old image failed", "image", img.name, "err", err)
		}
	}
}

// ImagePath resolves a stored image by file name. Names that try to leave
// the image directory are reported as not found.
func (s *TreeService) ImagePath(name string) (string, string, error) {
	if s.config.Directory == "" || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", "", customErrors.ErrNotFound
	}

	format, err := parsetree.ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
	if err != nil {
		return "", "", customErrors.ErrNotFound
	}

	path := filepath.Join(s.config.Directory, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", "", customErrors.ErrNotFound
	}
	return path, format.ContentType(), nil
}
