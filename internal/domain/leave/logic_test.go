package leave

import (
	"testing"

	"ptotracker/internal/domain/calendar"
)

func TestComputeDurationBusinessDays(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		hours float64
	}{
		{"single weekday", "2025-01-10", "2025-01-10", 7.5},
		{"friday through sunday", "2025-01-10", "2025-01-12", 7.5},
		{"week containing MLK day", "2025-01-20", "2025-01-24", 30},
		{"thanksgiving week", "2025-11-24", "2025-11-28", 30},
		{"inverted range", "2025-01-12", "2025-01-10", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeDuration(calendar.Default, DurationInput{StartDate: tc.start, EndDate: tc.end})
			if got.Tier != TierBusinessDays {
				t.Fatalf("expected business day tier, got %s", got.Tier)
			}
			if got.Hours != tc.hours {
				t.Fatalf("expected %v hours, got %v", tc.hours, got.Hours)
			}
		})
	}
}

func TestComputeDurationPartialDay(t *testing.T) {
	got := ComputeDuration(calendar.Default, DurationInput{
		StartDate:  "2025-03-03",
		EndDate:    "2025-03-03",
		PartialDay: true,
		StartTime:  "09:00",
		EndTime:    "11:20",
	})
	if got.Hours != 2.33 || got.Tier != TierBusinessDays {
		t.Fatalf("expected 2.33 business hours, got %+v", got)
	}
}

func TestComputeDurationPartialFlagWithoutTimesUsesDates(t *testing.T) {
	got := ComputeDuration(calendar.Default, DurationInput{
		StartDate:  "2025-03-03",
		EndDate:    "2025-03-04",
		PartialDay: true,
	})
	if got.Hours != 15 {
		t.Fatalf("expected 15 hours, got %v", got.Hours)
	}
}

func TestComputeDurationCalendarFallback(t *testing.T) {
	got := ComputeDuration(calendar.Default, DurationInput{StartDate: "2000-01-01", EndDate: "2015-12-31"})
	if got.Tier != TierCalendarDays {
		t.Fatalf("expected calendar day tier, got %s", got.Tier)
	}
	days := calendar.DaysBetween(calendar.NewDate(2000, 1, 1), calendar.NewDate(2015, 12, 31)) + 1
	if got.Hours != float64(days)*HoursPerDay {
		t.Fatalf("expected %v hours, got %v", float64(days)*HoursPerDay, got.Hours)
	}
}

func TestComputeDurationDefault(t *testing.T) {
	inputs := []DurationInput{
		{StartDate: "not-a-date", EndDate: "2025-01-10"},
		{StartDate: "2025-01-10", EndDate: "2025/01/12"},
		{StartDate: "2025-01-10", EndDate: "2025-01-10", PartialDay: true, StartTime: "9am", EndTime: "10:00"},
		{StartDate: "2025-01-10", EndDate: "2025-01-10", PartialDay: true, StartTime: "13:00", EndTime: "12:00"},
		{StartDate: "2025-01-10", EndDate: "2025-01-10", PartialDay: true, StartTime: "13:00", EndTime: "13:00"},
	}
	for _, in := range inputs {
		got := ComputeDuration(calendar.Default, in)
		if got.Tier != TierDefault || got.Hours != HoursPerDay || got.Days != 1 {
			t.Fatalf("expected default day for %+v, got %+v", in, got)
		}
	}
}

func TestPartialDayHours(t *testing.T) {
	hours, err := PartialDayHours("08:30", "12:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hours != 3.5 {
		t.Fatalf("expected 3.5, got %v", hours)
	}
	if _, err := PartialDayHours("12:00", "08:30"); err == nil {
		t.Fatal("expected error for reversed times")
	}
}

func TestEmployeeDeduct(t *testing.T) {
	e := Employee{Balance: Balance{PTOHours: 60, SickHours: 10}}

	if got := e.Deduct(LedgerPTO, 22.5); got != 37.5 {
		t.Fatalf("expected 37.5 pto hours, got %v", got)
	}
	if e.Balance.SickHours != 10 {
		t.Fatalf("sick ledger changed: %v", e.Balance.SickHours)
	}
	if got := e.Deduct(LedgerSick, 15); got != 0 {
		t.Fatalf("expected sick floor at 0, got %v", got)
	}
	if got := e.Deduct(LedgerPTO, -5); got != 37.5 {
		t.Fatalf("negative deduction changed balance: %v", got)
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusApproved, StatusDenied},
		StatusInProgress: {StatusApproved},
		StatusApproved:   {StatusCompleted},
	}
	all := []Status{StatusPending, StatusInProgress, StatusApproved, StatusDenied, StatusCompleted}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Fatalf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
	if !StatusDenied.Terminal() || !StatusCompleted.Terminal() || StatusApproved.Terminal() {
		t.Fatal("unexpected terminal set")
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("in_progress")
	if err != nil || status != StatusInProgress {
		t.Fatalf("expected in_progress, got %v %v", status, err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
