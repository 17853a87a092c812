package configs

import (
	"time"

	"IFCompiler/pkg/artifact"
	"IFCompiler/pkg/parsetree"
)

type CompilerServiceConfig struct {
	ToolchainArgs     []string
	JobTimeout        time.Duration
	KillGrace         time.Duration
	MaxConcurrentJobs int
	MaxOutputBytes    int
	ArtifactNames     artifact.Names
	Tree              parsetree.Options
}

type TreeImageConfig struct {
	Enabled   bool
	Directory string
	Format    parsetree.Format
	// MaxImages bounds how many rendered images are kept on disk; the oldest
	// are removed first. Zero keeps everything.
	MaxImages int
}
