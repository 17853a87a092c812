package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `toml:"port"`

	ToolchainCommand     string `toml:"toolchain_command"`
	ToolchainDirectory   string `toml:"toolchain_directory"`
	ArtifactSubdirectory string `toml:"artifact_subdirectory"`
	WorkspaceRoot        string `toml:"workspace_root"`
	IsolateWorkspaces    bool   `toml:"isolate_workspaces"`

	InputFileName string `toml:"input_file_name"`
	TokensFile    string `toml:"tokens_file"`
	SymbolsFile   string `toml:"symbols_file"`
	ConstantsFile string `toml:"constants_file"`
	TreeFile      string `toml:"tree_file"`

	JobTimeout        time.Duration `toml:"job_timeout"`
	KillGrace         time.Duration `toml:"kill_grace"`
	MaxConcurrentJobs int           `toml:"max_concurrent_jobs"`
	MaxOutputBytes    int           `toml:"max_output_bytes"`

	DatabasePath string `toml:"database_path"`

	RenderTreeImages   bool   `toml:"render_tree_images"`
	TreeImageDirectory string `toml:"tree_image_directory"`
	TreeImageFormat    string `toml:"tree_image_format"`
	IndentUnit         int    `toml:"indent_unit"`

	LogLevel string `toml:"log_level"`
}

// LoadConfig builds the configuration from defaults, then the optional TOML
// file at path, then environment variables (a .env file is loaded first).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}
	baseDir := filepath.Dir(execPath)

	cfg := Default(baseDir)

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(baseDir); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration with paths relative to baseDir.
func Default(baseDir string) *Config {
	return &Config{
		Port:                 "5000",
		ToolchainCommand:     "sh compiler.sh",
		ToolchainDirectory:   filepath.Join(baseDir, "toolchain"),
		ArtifactSubdirectory: "lexical",
		WorkspaceRoot:        filepath.Join(os.TempDir(), "ifcompiler-jobs"),
		IsolateWorkspaces:    true,
		InputFileName:        "input.c",
		TokensFile:           "parseTable",
		SymbolsFile:          "symbolTable",
		ConstantsFile:        "constantTable",
		TreeFile:             "parsetree.txt",
		JobTimeout:           10 * time.Second,
		KillGrace:            2 * time.Second,
		MaxConcurrentJobs:    8,
		MaxOutputBytes:       1 << 20,
		DatabasePath:         ":memory:",
		RenderTreeImages:     true,
		TreeImageDirectory:   filepath.Join(baseDir, "tree-images"),
		TreeImageFormat:      "svg",
		IndentUnit:           2,
		LogLevel:             "info",
	}
}

func (c *Config) applyEnv(baseDir string) error {
	c.Port = getEnv("PORT", c.Port)
	c.ToolchainCommand = getEnv("TOOLCHAIN_COMMAND", c.ToolchainCommand)
	c.ToolchainDirectory = getEnvPath("TOOLCHAIN_DIRECTORY", baseDir, c.ToolchainDirectory)
	c.ArtifactSubdirectory = getEnv("ARTIFACT_SUBDIRECTORY", c.ArtifactSubdirectory)
	c.WorkspaceRoot = getEnvPath("WORKSPACE_ROOT", baseDir, c.WorkspaceRoot)
	c.InputFileName = getEnv("INPUT_FILE_NAME", c.InputFileName)
	c.TokensFile = getEnv("TOKENS_FILE", c.TokensFile)
	c.SymbolsFile = getEnv("SYMBOLS_FILE", c.SymbolsFile)
	c.ConstantsFile = getEnv("CONSTANTS_FILE", c.ConstantsFile)
	c.TreeFile = getEnv("TREE_FILE", c.TreeFile)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.TreeImageDirectory = getEnvPath("TREE_IMAGE_DIRECTORY", baseDir, c.TreeImageDirectory)
	c.TreeImageFormat = getEnv("TREE_IMAGE_FORMAT", c.TreeImageFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error

	if c.IsolateWorkspaces, err = getEnvBool("ISOLATE_WORKSPACES", c.IsolateWorkspaces); err != nil {
		return err
	}
	if c.RenderTreeImages, err = getEnvBool("RENDER_TREE_IMAGES", c.RenderTreeImages); err != nil {
		return err
	}
	if c.JobTimeout, err = getEnvSeconds("JOB_TIMEOUT_SECONDS", c.JobTimeout); err != nil {
		return err
	}
	if c.KillGrace, err = getEnvSeconds("KILL_GRACE_SECONDS", c.KillGrace); err != nil {
		return err
	}
	if c.MaxConcurrentJobs, err = getEnvInt("MAX_CONCURRENT_JOBS", c.MaxConcurrentJobs); err != nil {
		return err
	}
	if c.MaxOutputBytes, err = getEnvInt("MAX_OUTPUT_BYTES", c.MaxOutputBytes); err != nil {
		return err
	}
	if c.IndentUnit, err = getEnvInt("INDENT_UNIT", c.IndentUnit); err != nil {
		return err
	}

	return nil
}

func (c *Config) Validate() error {
	if len(strings.Fields(c.ToolchainCommand)) == 0 {
		return fmt.Errorf("toolchain command is empty")
	}
	if c.InputFileName == "" {
		return fmt.Errorf("input file name is empty")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job timeout must be positive, got %s", c.JobTimeout)
	}
	if c.KillGrace < 0 {
		return fmt.Errorf("kill grace must not be negative, got %s", c.KillGrace)
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("max concurrent jobs must be positive, got %d", c.MaxConcurrentJobs)
	}
	if c.IndentUnit <= 0 {
		return fmt.Errorf("indent unit must be positive, got %d", c.IndentUnit)
	}
	switch strings.ToLower(c.TreeImageFormat) {
	case "svg", "png":
	default:
		return fmt.Errorf("unsupported tree image format %q", c.TreeImageFormat)
	}
	return nil
}

// ToolchainArgs splits the toolchain command on whitespace.
func (c *Config) ToolchainArgs() []string {
	return strings.Fields(c.ToolchainCommand)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvPath returns the variable's value, resolving relative values against
// baseDir, or fallback when unset.
func getEnvPath(key, baseDir, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return n, nil
}

func getEnvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
