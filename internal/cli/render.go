package cli

import (
	"github.com/spf13/cobra"

	"IFCompiler/pkg/parsetree"
)

type renderOpts struct {
	output     string
	format     string
	indentUnit int
	fromDOT    bool
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{format: string(parsetree.FormatSVG), indentUnit: parsetree.DefaultIndentUnit}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render an indented parse tree (or a DOT file) to SVG or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parsetree.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			dot := text
			if !opts.fromDOT {
				dot = parsetree.NewConverter(parsetree.Options{IndentUnit: opts.indentUnit}).Convert(text)
			}

			img, err := parsetree.Render(cmd.Context(), dot, format)
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.output, img)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "image format: svg or png")
	cmd.Flags().IntVar(&opts.indentUnit, "indent", opts.indentUnit, "spaces per tree level")
	cmd.Flags().BoolVar(&opts.fromDOT, "dot", false, "input is already DOT")
	return cmd
}
