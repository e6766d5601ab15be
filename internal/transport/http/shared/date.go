package shared

import (
	"strings"

	"ptotracker/internal/domain/calendar"
)

// ParseDate accepts YYYY-MM-DD. An empty value gives the zero Date and no error.
func ParseDate(value string) (calendar.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return calendar.Date{}, nil
	}
	return calendar.ParseDate(value)
}
