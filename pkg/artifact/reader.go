// Package artifact reads the output files the toolchain leaves behind.
//
// Every read is best effort: a phase that failed or never ran simply leaves
// no file, and that is reported as empty text rather than an error.
package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

type Role string

const (
	Tokens    Role = "tokens"
	Symbols   Role = "symbols"
	Constants Role = "constants"
	Tree      Role = "tree"
)

// Roles lists every artifact in response order.
var Roles = []Role{Tokens, Symbols, Constants, Tree}

// Names maps each role to the file name the toolchain writes it under.
type Names map[Role]string

// DefaultNames are the file names the reference toolchain produces.
func DefaultNames() Names {
	return Names{
		Tokens:    "parseTable",
		Symbols:   "symbolTable",
		Constants: "constantTable",
		Tree:      "parsetree.txt",
	}
}

// Set holds the text of each artifact. Missing roles read as "".
type Set map[Role]string

func (s Set) Get(role Role) string {
	return s[role]
}

// Read returns the file contents with line endings normalized to "\n", or ""
// when the file is missing or unreadable.
func Read(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return NormalizeNewlines(string(data))
}

// NormalizeNewlines rewrites CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ReadSet reads every named artifact under dir concurrently. It only returns
// an error when ctx is cancelled before the reads finish.
func ReadSet(ctx context.Context, dir string, names Names) (Set, error) {
	texts := make([]string, len(Roles))

	g, ctx := errgroup.WithContext(ctx)
	for i, role := range Roles {
		name, ok := names[role]
		if !ok || name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			texts[i] = Read(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(Set, len(Roles))
	for i, role := range Roles {
		set[role] = texts[i]
	}
	return set, nil
}

// Remove deletes any artifacts left by a previous run in a shared directory.
func Remove(dir string, names Names) {
	for _, name := range names {
		if name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		_ = os.Remove(path)
	}
}
