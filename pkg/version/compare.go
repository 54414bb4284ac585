package version

import (
	"strconv"
	"strings"
)

// Parse splits a dotted version into three numeric components. Missing or
// non-numeric components are zero; anything past the third is ignored.
func Parse(v string) [3]int {
	var out [3]int
	if v == "" {
		return out
	}
	parts := strings.Split(strings.TrimSpace(v), ".")
	for i := 0; i < len(parts) && i < len(out); i++ {
		out[i] = leadingInt(parts[i])
	}
	return out
}

// Compare returns a negative number when a < b, zero when equal and a
// positive number when a > b.
func Compare(a, b string) int {
	pa, pb := Parse(a), Parse(b)
	for i := range pa {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	return 0
}

// leadingInt parses the leading decimal digits of s, so "3-rc1" reads as 3.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
