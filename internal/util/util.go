// Package util holds small string helpers shared by the command parsers.
package util

import (
	"fmt"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// CleanArg trims whitespace and surrounding quotes from a command argument.
func CleanArg(s string) string {
	return TrimQuotes(strings.TrimSpace(s))
}

// SplitList parses a list argument. Both `["A1","B2"]` and `A1, B2` give
// [A1 B2]; empty items are dropped.
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	var out []string
	for _, part := range strings.Split(s, ",") {
		if item := CleanArg(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PadID formats n as a zero-padded identifier such as "AV-007".
func PadID(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}
