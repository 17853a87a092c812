package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"IFCompiler/pkg/artifact"
	"IFCompiler/pkg/parsetree"
)

type convertOpts struct {
	output     string
	indentUnit int
	tabWidth   int
}

// newConvertCmd converts an indented parse-tree dump to DOT. With no file
// argument the dump is read from stdin.
func newConvertCmd() *cobra.Command {
	opts := convertOpts{indentUnit: parsetree.DefaultIndentUnit}

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert an indented parse tree to Graphviz DOT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			conv := parsetree.NewConverter(parsetree.Options{IndentUnit: opts.indentUnit, TabWidth: opts.tabWidth})
			graph := conv.Parse(text)
			dot := conv.ToDOT(graph)

			loggerFromContext(cmd.Context()).Debug("converted parse tree", "nodes", len(graph.Nodes), "edges", len(graph.Edges))
			return writeOutput(cmd, opts.output, []byte(dot))
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.indentUnit, "indent", opts.indentUnit, "spaces per tree level")
	cmd.Flags().IntVar(&opts.tabWidth, "tab-width", 0, "spaces a leading tab counts for (0 = tabs are not indentation)")
	return cmd
}

// readInput reads the named artifact (missing files read as empty) or stdin.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return artifact.Read(args[0]), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return artifact.NormalizeNewlines(string(data)), nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
