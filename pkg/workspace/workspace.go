// Package workspace prepares the directory a compilation job runs in.
//
// In isolated mode every job gets a private copy of the toolchain directory
// under Root, so concurrent jobs never share an input file. In shared mode the
// toolchain directory itself is used and jobs take turns holding it.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"IFCompiler/pkg/artifact"
	folderutils "IFCompiler/pkg/folder_utils"
)

type Config struct {
	// ToolchainDirectory is the fixed working directory of the toolchain.
	ToolchainDirectory string
	// ArtifactSubdirectory, relative to the working directory, holds the
	// input file and the artifacts ("lexical" for the reference toolchain).
	ArtifactSubdirectory string
	InputFileName        string
	ArtifactNames        artifact.Names

	Isolate bool
	// Root is where isolated job directories are created.
	Root string
}

type Manager struct {
	cfg Config

	// shared holds a token while a job owns the shared toolchain directory.
	shared chan struct{}
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.ToolchainDirectory == "" {
		return nil, fmt.Errorf("toolchain directory is required")
	}
	if cfg.InputFileName == "" {
		return nil, fmt.Errorf("input file name is required")
	}
	if cfg.Isolate {
		if cfg.Root == "" {
			cfg.Root = filepath.Join(os.TempDir(), "ifcompiler-jobs")
		}
		if err := os.MkdirAll(cfg.Root, 0755); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}

	return &Manager{
		cfg:    cfg,
		shared: make(chan struct{}, 1),
	}, nil
}

func (m *Manager) Isolated() bool {
	return m.cfg.Isolate
}

type Workspace struct {
	// Dir is the working directory for the toolchain process.
	Dir string
	// ArtifactDir holds the input file and the toolchain's outputs.
	ArtifactDir string
	InputPath   string

	isolated    bool
	releaseOnce sync.Once
	release     func()
}

// Prepare reserves a workspace for jobID and writes source to its input file.
// In shared mode it blocks until the previous job released the directory or
// ctx is done. Callers must Release the returned workspace.
func (m *Manager) Prepare(ctx context.Context, jobID, source string) (*Workspace, error) {
	if m.cfg.Isolate {
		return m.prepareIsolated(jobID, source)
	}
	return m.prepareShared(ctx, source)
}

func (m *Manager) prepareIsolated(jobID, source string) (*Workspace, error) {
	tempPath, err := os.MkdirTemp(m.cfg.Root, "job-"+jobID+"-*")
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(tempPath)
	if err != nil {
		os.RemoveAll(tempPath)
		return nil, err
	}

	ws := &Workspace{
		Dir:      absPath,
		isolated: true,
		release:  func() { os.RemoveAll(absPath) },
	}

	if err := folderutils.CopyDir(m.cfg.ToolchainDirectory, absPath, m.cfg.Root); err != nil {
		ws.Release()
		return nil, fmt.Errorf("copy toolchain: %w", err)
	}

	if err := m.writeInput(ws, source); err != nil {
		ws.Release()
		return nil, err
	}
	return ws, nil
}

func (m *Manager) prepareShared(ctx context.Context, source string) (*Workspace, error) {
	select {
	case m.shared <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	dir, err := filepath.Abs(m.cfg.ToolchainDirectory)
	if err != nil {
		<-m.shared
		return nil, err
	}

	ws := &Workspace{
		Dir:     dir,
		release: func() { <-m.shared },
	}

	if err := m.writeInput(ws, source); err != nil {
		ws.Release()
		return nil, err
	}

	// A previous job's outputs must not be mistaken for this job's.
	artifact.Remove(ws.ArtifactDir, m.cfg.ArtifactNames)
	return ws, nil
}

func (m *Manager) writeInput(ws *Workspace, source string) error {
	ws.ArtifactDir = filepath.Join(ws.Dir, m.cfg.ArtifactSubdirectory)
	if err := os.MkdirAll(ws.ArtifactDir, 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	ws.InputPath = filepath.Join(ws.ArtifactDir, m.cfg.InputFileName)
	if err := os.WriteFile(ws.InputPath, []byte(source), 0644); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	return nil
}

// Release frees the workspace. It is safe to call more than once.
func (w *Workspace) Release() {
	w.releaseOnce.Do(func() {
		if w.release != nil {
			w.release()
		}
	})
}

func (w *Workspace) Isolated() bool {
	return w.isolated
}
