package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date layout accepted by the API.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date. Blank input yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
