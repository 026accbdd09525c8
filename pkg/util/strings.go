package util

import "strconv"

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// FloatString formats a float with the shortest representation that
// round-trips, for message text and CSV cells.
func FloatString(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
