// Package tables parses the pipe-delimited token, symbol and constant tables
// the toolchain writes. Malformed rows are skipped; the raw text stays
// available to callers that want it verbatim.
package tables

import (
	"strings"
)

const separator = " | "

type Token struct {
	Lexeme    string `json:"lexeme"`
	Type      string `json:"type"`
	Attribute string `json:"attribute"`
	Line      string `json:"line"`
}

type Symbol struct {
	Lexeme string   `json:"lexeme"`
	Type   string   `json:"type"`
	Lines  []string `json:"lines"`
	Scope  string   `json:"scope"`
	FuncNo string   `json:"funcNo"`
}

type Constant struct {
	Value string   `json:"value"`
	Lines []string `json:"lines"`
}

// ParseTokens reads rows of LEXEME | TYPE | ATTRIBUTE | LINE.
func ParseTokens(text string) []Token {
	var out []Token
	for _, parts := range rows(text, "LEXEME") {
		if len(parts) != 4 {
			continue
		}
		out = append(out, Token{
			Lexeme:    parts[0],
			Type:      parts[1],
			Attribute: parts[2],
			Line:      parts[3],
		})
	}
	return out
}

// ParseSymbols reads rows of LEXEME | TYPE | LINE(S) | SCOPE | FUNC_NO.
func ParseSymbols(text string) []Symbol {
	var out []Symbol
	for _, parts := range rows(text, "Lexeme") {
		if len(parts) < 5 {
			continue
		}
		out = append(out, Symbol{
			Lexeme: parts[0],
			Type:   parts[1],
			Lines:  strings.Fields(parts[2]),
			Scope:  parts[3],
			FuncNo: parts[4],
		})
	}
	return out
}

// ParseConstants reads rows of VALUE | LINE(S).
func ParseConstants(text string) []Constant {
	var out []Constant
	for _, parts := range rows(text, "Value") {
		if len(parts) < 2 {
			continue
		}
		out = append(out, Constant{
			Value: parts[0],
			Lines: strings.Fields(parts[1]),
		})
	}
	return out
}

// rows splits text into trimmed fields, dropping blank lines and the header
// line (one starting with header).
func rows(text, header string) [][]string {
	var out [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, header) {
			continue
		}
		parts := strings.Split(line, separator)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		out = append(out, parts)
	}
	return out
}
