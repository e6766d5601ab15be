package calendar

// PTODaysFromStrings counts business days between two YYYY-MM-DD strings.
// Unparseable input counts as a single day rather than an error.
func PTODaysFromStrings(start, end string) int {
	s, err := ParseDate(start)
	if err != nil {
		return 1
	}
	e, err := ParseDate(end)
	if err != nil {
		return 1
	}
	return Default.CountBusinessDays(s, e)
}

// BreakdownFromStrings is Breakdown over YYYY-MM-DD strings. Unparseable
// input yields an empty breakdown.
func BreakdownFromStrings(start, end string) Breakdown {
	s, err := ParseDate(start)
	if err != nil {
		return emptyBreakdown()
	}
	e, err := ParseDate(end)
	if err != nil {
		return emptyBreakdown()
	}
	return Default.Breakdown(s, e)
}
