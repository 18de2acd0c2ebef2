// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty or
// not an integer. Surrounding spaces are not trimmed.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("", 10)   // 10
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi]. lo must not exceed hi.
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// LimitParam parses an optional ?limit= value. Empty means no limit (0);
// anything else is bounded to [1, max], and garbage falls back to max.
func LimitParam(raw string, max int) int {
	if raw == "" {
		return 0
	}
	return Clamp(AtoiDefault(raw, max), 1, max)
}
