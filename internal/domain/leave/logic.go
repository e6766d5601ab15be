package leave

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ptotracker/internal/domain/calendar"
)

// DurationTier records how a request's duration was obtained.
type DurationTier int

const (
	// TierBusinessDays counts business days (or clock time for partial days).
	TierBusinessDays DurationTier = iota
	// TierCalendarDays counts raw calendar days because the calendar rejected the range.
	TierCalendarDays
	// TierDefault is a flat single day because the input could not be read.
	TierDefault
)

func (t DurationTier) String() string {
	switch t {
	case TierCalendarDays:
		return "calendar_days"
	case TierDefault:
		return "default"
	default:
		return "business_days"
	}
}

func ParseDurationTier(value string) DurationTier {
	switch value {
	case "calendar_days":
		return TierCalendarDays
	case "default":
		return TierDefault
	default:
		return TierBusinessDays
	}
}

func (t DurationTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DurationTier) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseDurationTier(raw)
	return nil
}

type DurationInput struct {
	StartDate  string
	EndDate    string
	PartialDay bool
	StartTime  string
	EndTime    string
}

type Duration struct {
	Hours float64
	Days  float64
	Tier  DurationTier
}

var errInvalidClockRange = errors.New("end time must be after start time")

// ComputeDuration never fails. It walks three tiers: business days from the
// calendar, then raw calendar days when the calendar refuses the range, then a
// single default day when the dates or clock times cannot be parsed.
func ComputeDuration(c *calendar.Calendar, in DurationInput) Duration {
	if in.PartialDay && in.StartTime != "" && in.EndTime != "" {
		hours, err := PartialDayHours(in.StartTime, in.EndTime)
		if err != nil {
			return defaultDuration()
		}
		return Duration{Hours: hours, Days: round2(hours / HoursPerDay), Tier: TierBusinessDays}
	}

	start, err := calendar.ParseDate(in.StartDate)
	if err != nil {
		return defaultDuration()
	}
	end, err := calendar.ParseDate(in.EndDate)
	if err != nil {
		return defaultDuration()
	}

	days, err := c.CountBusinessDaysChecked(start, end)
	if err == nil {
		return Duration{Hours: float64(days) * HoursPerDay, Days: float64(days), Tier: TierBusinessDays}
	}
	if errors.Is(err, calendar.ErrRangeTooLong) {
		span := calendar.DaysBetween(start, end) + 1
		return Duration{Hours: float64(span) * HoursPerDay, Days: float64(span), Tier: TierCalendarDays}
	}
	return defaultDuration()
}

func defaultDuration() Duration {
	return Duration{Hours: HoursPerDay, Days: 1, Tier: TierDefault}
}

// PartialDayHours returns the hours between two HH:MM clock times rounded to
// two decimals.
func PartialDayHours(start, end string) (float64, error) {
	startMinutes, err := clockMinutes(start)
	if err != nil {
		return 0, err
	}
	endMinutes, err := clockMinutes(end)
	if err != nil {
		return 0, err
	}
	if endMinutes <= startMinutes {
		return 0, errInvalidClockRange
	}
	return round2(float64(endMinutes-startMinutes) / 60), nil
}

func clockMinutes(value string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
