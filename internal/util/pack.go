package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	packTokenPattern = regexp.MustCompile(`\((\d[^)]*)\)`)
	leadingNumber    = regexp.MustCompile(`^(\d+)`)
)

// ParsedPack is the result of scanning a description for a packaging token
// such as "(6PK)" or "(12 CT)".
type ParsedPack struct {
	Token string
	Qty   int
}

// HasToken reports whether a parenthesized token was found.
func (p ParsedPack) HasToken() bool {
	return p.Token != ""
}

// ParsePack finds the first parenthesized token that starts with a digit.
// Qty is the token's leading number and defaults to 1.
func ParsePack(description string) ParsedPack {
	out := ParsedPack{Qty: 1}
	m := packTokenPattern.FindStringSubmatch(description)
	if m == nil {
		return out
	}
	out.Token = strings.TrimSpace(m[1])
	if nm := leadingNumber.FindStringSubmatch(out.Token); nm != nil {
		if n, err := strconv.Atoi(nm[1]); err == nil && n > 0 {
			out.Qty = n
		}
	}
	return out
}
