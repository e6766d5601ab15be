package leave

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"ptotracker/internal/domain/calendar"
)

// SummaryPDF produces a one-page record of a request for HR files.
func (s *Service) SummaryPDF(req Request, employee Employee) ([]byte, error) {
	return renderSummaryPDF(s.Calendar, req, employee, s.Breakdown(req))
}

func renderSummaryPDF(cal *calendar.Calendar, req Request, employee Employee, breakdown calendar.Breakdown) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	title := "PTO Request Summary"
	if req.IsCallOut {
		title = "Call-Out Summary"
	}
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(format string, args ...any) {
		pdf.Cell(0, 8, fmt.Sprintf(format, args...))
		pdf.Ln(7)
	}
	line("Request: %s", req.ID)
	line("Employee: %s (%s)", employee.Name, employee.Position)
	line("Manager team: %s", req.ManagerTeam)
	line("Type: %s", req.Type)
	if req.PartialDay && req.StartTime != "" {
		line("Dates: %s, %s to %s", req.StartDate, req.StartTime, req.EndTime)
	} else {
		line("Dates: %s to %s", req.StartDate, req.EndDate)
	}
	line("Status: %s", req.Status)
	line("Duration: %.2f hours (%.2f days)", req.DurationHours, req.DurationDays())
	if req.DurationTier != TierBusinessDays {
		line("Duration estimated from %s", strings.ReplaceAll(req.DurationTier.String(), "_", " "))
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	line("Day breakdown")
	pdf.SetFont("Helvetica", "", 12)
	line("Business days: %d", breakdown.BusinessDays)
	line("Weekend days: %d", breakdown.WeekendDays)
	line("Holidays: %d", breakdown.HolidayDays)
	for _, day := range breakdown.Holidays {
		name, _ := cal.HolidayName(day)
		line("  %s  %s", day, name)
	}
	pdf.Ln(3)

	if !req.IsCallOut {
		pdf.SetFont("Helvetica", "B", 12)
		line("Checklist")
		pdf.SetFont("Helvetica", "", 12)
		line("Timekeeping entered: %s", yesNo(req.TimekeepingEntered))
		line("Coverage arranged: %s", yesNo(req.CoverageArranged))
	}
	if req.Reason != "" {
		line("Reason: %s", req.Reason)
	}
	if req.DenialReason != "" {
		line("Denial reason: %s", req.DenialReason)
	}
	line("Remaining balance: PTO %.2f h, sick %.2f h", employee.Balance.PTOHours, employee.Balance.SickHours)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
