package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reQ     = regexp.MustCompile(`^[A-Za-z0-9 @._'+\-]{1,50}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	rePhone = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// Q validates a search query: trims, enforces allowed characters and max length.
// An empty query is valid and means "no search".
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a stock quantity, clamped to 1..10000.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	if n > 10000 {
		n = 10000
	}
	return n, true
}

// Page parses a 1-based page number; anything invalid is page 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ID validates a simple resource identifier.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Date validates a YYYY-MM-DD calendar date.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	_, err := time.Parse("2006-01-02", s)
	return s, err == nil
}

// OneOf reports whether s is one of the allowed values.
func OneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
