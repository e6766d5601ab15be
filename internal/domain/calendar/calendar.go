// Package calendar classifies dates as business days, weekends or US federal
// holidays and summarises date ranges for leave duration.
package calendar

import (
	"errors"
	"sync"

	cal "github.com/rickar/cal/v2"
)

// MaxRangeDays bounds CheckedSpan. Anything longer is treated as bad input.
const MaxRangeDays = 3660

var ErrRangeTooLong = errors.New("date range too long")

// Classification is the single bucket a date falls into.
type Classification int

const (
	BusinessDay Classification = iota
	WeekendDay
	HolidayDay
)

func (c Classification) String() string {
	switch c {
	case WeekendDay:
		return "weekend"
	case HolidayDay:
		return "holiday"
	default:
		return "business_day"
	}
}

// Breakdown summarises an inclusive date range.
type Breakdown struct {
	TotalDays    int    `json:"totalDays"`
	BusinessDays int    `json:"businessDays"`
	WeekendDays  int    `json:"weekendDays"`
	HolidayDays  int    `json:"holidayDays"`
	Holidays     []Date `json:"holidays"`
	Weekends     []Date `json:"weekends"`
}

func emptyBreakdown() Breakdown {
	return Breakdown{Holidays: []Date{}, Weekends: []Date{}}
}

// Calendar is safe for concurrent use. Holiday sets are memoised per year.
type Calendar struct {
	business *cal.BusinessCalendar

	mu     sync.RWMutex
	byYear map[int]yearHolidays
}

func New() *Calendar {
	return &Calendar{
		business: newBusinessCalendar(),
		byYear:   make(map[int]yearHolidays),
	}
}

// Default is shared by the string helpers.
var Default = New()

func (c *Calendar) year(y int) yearHolidays {
	c.mu.RLock()
	hs, ok := c.byYear[y]
	c.mu.RUnlock()
	if ok {
		return hs
	}
	hs = computeYear(y)
	c.mu.Lock()
	c.byYear[y] = hs
	c.mu.Unlock()
	return hs
}

// HolidaysForYear returns the ten observed holiday dates of year.
func (c *Calendar) HolidaysForYear(year int) map[Date]struct{} {
	hs := c.year(year)
	out := make(map[Date]struct{}, len(hs.set))
	for d := range hs.set {
		out[d] = struct{}{}
	}
	return out
}

// Holidays returns the named holidays of year in date order.
func (c *Calendar) Holidays(year int) []Holiday {
	hs := c.year(year)
	out := make([]Holiday, len(hs.list))
	copy(out, hs.list)
	return out
}

// HolidayName reports whether d is a holiday and its name.
func (c *Calendar) HolidayName(d Date) (string, bool) {
	name, ok := c.year(d.Year).set[d]
	return name, ok
}

func (c *Calendar) IsBusinessDay(d Date) bool {
	if d.IsWeekend() {
		return false
	}
	return c.business.IsWorkday(d.Time())
}

// Classify puts d in exactly one bucket. Weekend wins over holiday.
func (c *Calendar) Classify(d Date) Classification {
	if d.IsWeekend() {
		return WeekendDay
	}
	if _, ok := c.HolidayName(d); ok {
		return HolidayDay
	}
	return BusinessDay
}

func (c *Calendar) CountBusinessDays(start, end Date) int {
	count := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}

func (c *Calendar) ListBusinessDays(start, end Date) []Date {
	out := []Date{}
	for d := start; !d.After(end); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}

func (c *Calendar) Breakdown(start, end Date) Breakdown {
	out := emptyBreakdown()
	if start.After(end) {
		return out
	}
	for d := start; !d.After(end); d = d.AddDays(1) {
		out.TotalDays++
		switch c.Classify(d) {
		case WeekendDay:
			out.WeekendDays++
			out.Weekends = append(out.Weekends, d)
		case HolidayDay:
			out.HolidayDays++
			out.Holidays = append(out.Holidays, d)
		default:
			out.BusinessDays++
		}
	}
	return out
}

// CheckedSpan returns the inclusive number of calendar days in the range,
// 0 when start is after end, or ErrRangeTooLong past MaxRangeDays.
func CheckedSpan(start, end Date) (int, error) {
	if start.After(end) {
		return 0, nil
	}
	span := DaysBetween(start, end) + 1
	if span > MaxRangeDays {
		return span, ErrRangeTooLong
	}
	return span, nil
}

// CountBusinessDaysChecked is CountBusinessDays guarded by CheckedSpan.
func (c *Calendar) CountBusinessDaysChecked(start, end Date) (int, error) {
	if _, err := CheckedSpan(start, end); err != nil {
		return 0, err
	}
	return c.CountBusinessDays(start, end), nil
}
