package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, []string{"sh", "compiler.sh"}, cfg.ToolchainArgs())
	assert.Equal(t, 10*time.Second, cfg.JobTimeout)
	assert.Equal(t, "input.c", cfg.InputFileName)
	assert.Equal(t, 2, cfg.IndentUnit)
	assert.True(t, cfg.IsolateWorkspaces)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "compiler.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "7000"
toolchain_command = "./compiler.bat"
job_timeout = "3s"
isolate_workspaces = false
indent_unit = 4
`), 0644))

	t.Setenv("PORT", "9000")
	t.Setenv("JOB_TIMEOUT_SECONDS", "1.5")
	t.Setenv("TOOLCHAIN_DIRECTORY", "/opt/toolchain")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "./compiler.bat", cfg.ToolchainCommand)
	assert.Equal(t, 1500*time.Millisecond, cfg.JobTimeout)
	assert.False(t, cfg.IsolateWorkspaces)
	assert.Equal(t, 4, cfg.IndentUnit)
	assert.Equal(t, "/opt/toolchain", cfg.ToolchainDirectory)
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAX_CONCURRENT_JOBS", "many")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "MAX_CONCURRENT_JOBS")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"empty command":  func(c *Config) { c.ToolchainCommand = "  " },
		"zero timeout":   func(c *Config) { c.JobTimeout = 0 },
		"no slots":       func(c *Config) { c.MaxConcurrentJobs = 0 },
		"zero indent":    func(c *Config) { c.IndentUnit = 0 },
		"bad format":     func(c *Config) { c.TreeImageFormat = "gif" },
		"negative grace": func(c *Config) { c.KillGrace = -time.Second },
		"no input file":  func(c *Config) { c.InputFileName = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default(t.TempDir()).Validate())
}
