package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version, normally
// injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

type rootOpts struct {
	verbose    bool
	configPath string
}

// RootCommand builds the command tree.
func RootCommand() *cobra.Command {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:          "ifcompiler",
		Short:        "Run a compiler toolchain over HTTP and visualize its parse tree",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := parseLevel(os.Getenv("LOG_LEVEL"))
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("ifcompiler %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file (overrides CONFIG_FILE)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newConvertCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newTablesCmd())

	return root
}

// Execute runs the CLI with ctx, which should be cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return RootCommand().ExecuteContext(ctx)
}
