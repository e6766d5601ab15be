package calendar

import (
	"time"

	cal "github.com/rickar/cal/v2"
)

// Holiday is one observed federal holiday in a given year.
type Holiday struct {
	Name string `json:"name"`
	Date Date   `json:"date"`
}

// Observed on the actual date only. A holiday that lands on a weekend is not
// moved to the neighbouring Friday or Monday.
var federalHolidays = []*cal.Holiday{
	{Name: "New Year's Day", Type: cal.ObservancePublic, Month: time.January, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Martin Luther King Jr. Day", Type: cal.ObservancePublic, Month: time.January, Weekday: time.Monday, Offset: 3, Func: cal.CalcWeekdayOffset},
	{Name: "Presidents' Day", Type: cal.ObservancePublic, Month: time.February, Weekday: time.Monday, Offset: 3, Func: cal.CalcWeekdayOffset},
	{Name: "Memorial Day", Type: cal.ObservancePublic, Month: time.May, Weekday: time.Monday, Offset: -1, Func: cal.CalcWeekdayOffset},
	{Name: "Independence Day", Type: cal.ObservancePublic, Month: time.July, Day: 4, Func: cal.CalcDayOfMonth},
	{Name: "Labor Day", Type: cal.ObservancePublic, Month: time.September, Weekday: time.Monday, Offset: 1, Func: cal.CalcWeekdayOffset},
	{Name: "Columbus Day", Type: cal.ObservancePublic, Month: time.October, Weekday: time.Monday, Offset: 2, Func: cal.CalcWeekdayOffset},
	{Name: "Veterans Day", Type: cal.ObservancePublic, Month: time.November, Day: 11, Func: cal.CalcDayOfMonth},
	{Name: "Thanksgiving Day", Type: cal.ObservancePublic, Month: time.November, Weekday: time.Thursday, Offset: 4, Func: cal.CalcWeekdayOffset},
	{Name: "Christmas Day", Type: cal.ObservancePublic, Month: time.December, Day: 25, Func: cal.CalcDayOfMonth},
}

type yearHolidays struct {
	list []Holiday
	set  map[Date]string
}

func computeYear(year int) yearHolidays {
	out := yearHolidays{
		list: make([]Holiday, 0, len(federalHolidays)),
		set:  make(map[Date]string, len(federalHolidays)),
	}
	for _, h := range federalHolidays {
		actual, _ := h.Calc(year)
		d := DateOf(actual)
		out.list = append(out.list, Holiday{Name: h.Name, Date: d})
		out.set[d] = h.Name
	}
	return out
}

func newBusinessCalendar() *cal.BusinessCalendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(federalHolidays...)
	return bc
}
