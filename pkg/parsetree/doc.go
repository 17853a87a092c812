// Package parsetree turns the indented parse-tree dump written by the
// toolchain into a directed graph and its Graphviz DOT description.
//
// The dump holds one node per line. A node's depth is its count of leading
// spaces divided by [Options.IndentUnit] (two in the reference toolchain),
// and its label is the trimmed remainder of the line. Indentation that does
// not fall on a whole unit is floored, so a slightly misaligned line is
// attached to the nearest shallower level instead of failing the whole tree.
//
// # Usage
//
//	dot := parsetree.Convert(treeText)
//	svg, err := parsetree.Render(ctx, dot, parsetree.FormatSVG)
package parsetree
