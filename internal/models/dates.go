package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseCommentDate parses a loosely formatted date ("2024-03-01T10:00:00Z", "2024-03-01",
// "03/01/2024 10:00:00", RFC 1123, ...). Zone-less inputs are read as UTC and the result is
// always returned in UTC.
func ParseCommentDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q: %w", raw, err)
	}
	return t.UTC(), nil
}
