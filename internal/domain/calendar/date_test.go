package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Date{Year: 2025, Month: time.February, Day: 28}) {
		t.Fatalf("unexpected date %+v", got)
	}
	if _, err := ParseDate("2025-02-30"); err == nil {
		t.Fatal("expected error for invalid day")
	}
	if _, err := ParseDate("02/28/2025"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	if got := NewDate(2024, time.December, 31).AddDays(1); got != NewDate(2025, time.January, 1) {
		t.Fatalf("expected new year, got %s", got)
	}
	if got := NewDate(2024, time.February, 28).AddDays(1); got.Day != 29 {
		t.Fatalf("expected leap day, got %s", got)
	}
	if n := DaysBetween(NewDate(2025, time.March, 1), NewDate(2025, time.March, 31)); n != 30 {
		t.Fatalf("expected 30, got %d", n)
	}
}

func TestDateJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Start Date `json:"start"`
	}{Start: NewDate(2025, time.July, 4)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"start":"2025-07-04"}` {
		t.Fatalf("unexpected json %s", payload)
	}

	var decoded struct {
		Start Date `json:"start"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Start != NewDate(2025, time.July, 4) {
		t.Fatalf("unexpected decoded date %s", decoded.Start)
	}
}

func TestDaysBetweenLongRanges(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"1970-01-01", "1970-01-01", 0},
		{"2024-02-28", "2024-03-01", 2},
		{"2025-03-01", "2025-02-28", -1},
		{"2000-01-01", "2400-01-01", 146097},
		{"0001-01-01", "9999-12-31", 3652058},
	}
	for _, tc := range cases {
		start, _ := ParseDate(tc.start)
		end, _ := ParseDate(tc.end)
		if got := DaysBetween(start, end); got != tc.want {
			t.Fatalf("DaysBetween(%s, %s) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}

	start, _ := ParseDate("2000-01-01")
	end, _ := ParseDate("2400-01-01")
	span, err := CheckedSpan(start, end)
	if span != 146098 || err == nil {
		t.Fatalf("expected span 146098 with ErrRangeTooLong, got %d, %v", span, err)
	}
}
