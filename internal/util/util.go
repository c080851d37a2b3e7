// Package util provides common string helpers used across the replay tool.
package util

import (
	"strconv"
	"strings"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// Verb returns the first whitespace separated token of a command, or "" for
// a blank command.
func Verb(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if i := strings.IndexAny(cmd, " \t"); i >= 0 {
		return cmd[:i]
	}
	return cmd
}

// FormatCargo builds a display string for carried resources.
// Format: "wood 20, coal 5" with empty kinds omitted, or "empty".
func FormatCargo(c core.Cargo) string {
	var b strings.Builder
	for _, r := range core.ResourceTypes {
		n := c.Get(r)
		if n == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(r))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(n))
	}
	if b.Len() == 0 {
		return "empty"
	}
	return b.String()
}
