package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"IFCompiler/pkg/tables"
)

const (
	kindTokens    = "tokens"
	kindSymbols   = "symbols"
	kindConstants = "constants"
)

// newTablesCmd prints a token, symbol or constant table as JSON.
func newTablesCmd() *cobra.Command {
	var kind, output string

	cmd := &cobra.Command{
		Use:   "tables [file]",
		Short: "Parse a token, symbol or constant table to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var rows any
			switch kind {
			case kindTokens:
				rows = nonNil(tables.ParseTokens(text))
			case kindSymbols:
				rows = nonNil(tables.ParseSymbols(text))
			case kindConstants:
				rows = nonNil(tables.ParseConstants(text))
			default:
				return fmt.Errorf("unknown table kind %q (want %s, %s or %s)", kind, kindTokens, kindSymbols, kindConstants)
			}

			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, append(data, '\n'))
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", kindTokens, "table kind: tokens, symbols or constants")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
