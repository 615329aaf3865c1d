package models

import (
	"strconv"
	"strings"
)

// NormalizeState maps user input onto the closed set on, off, 1..5.
func NormalizeState(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "on", "off":
		return v, true
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 5 && len(v) == 1 {
		return v, true
	}
	return "", false
}

// ValidKey reports whether s can be used as a venue, device or schedule key.
func ValidKey(s string) bool {
	v := strings.TrimSpace(s)
	return v != "" && !strings.ContainsAny(v, ".#$[]/")
}
