package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrInvalidDate is returned when a date string cannot be parsed
var ErrInvalidDate = fmt.Errorf("invalid date")

// ParseDate parses ISO-8601-like date strings: RFC3339 with or without fraction and
// zone, space separated date and time, and plain dates. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}

	t, err := cast.StringToDateInDefaultLocation(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}
