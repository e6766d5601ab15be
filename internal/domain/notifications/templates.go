package notifications

import (
	"fmt"
	"strings"

	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/registration"
)

const signature = "\nThank you,\nPTO Management System\n"

func details(req leave.Request, employee leave.Employee, status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request ID: #%s\n", req.ID)
	fmt.Fprintf(&b, "Employee: %s\n", employee.Name)
	if employee.Position != "" {
		fmt.Fprintf(&b, "Position: %s\n", employee.Position)
	}
	fmt.Fprintf(&b, "Start Date: %s\n", req.StartDate)
	fmt.Fprintf(&b, "End Date: %s\n", req.EndDate)
	if req.PartialDay && req.StartTime != "" {
		fmt.Fprintf(&b, "Time: %s - %s\n", req.StartTime, req.EndTime)
	}
	fmt.Fprintf(&b, "PTO Type: %s\n", req.Type)
	fmt.Fprintf(&b, "Hours: %.2f\n", req.DurationHours)
	fmt.Fprintf(&b, "Status: %s\n", status)
	return b.String()
}

func submittedBody(req leave.Request, employee leave.Employee) string {
	intro := "Your PTO request has been submitted and is awaiting manager approval."
	status := "PENDING"
	if req.IsCallOut {
		intro = "Your call-out has been recorded and approved automatically. Feel better!"
		status = "APPROVED"
	}
	return fmt.Sprintf("Dear %s,\n\n%s\n\n%s%s", employee.Name, intro, details(req, employee, status), signature)
}

func managerBody(req leave.Request, employee leave.Employee) string {
	intro := "A new PTO request needs your review."
	status := "PENDING"
	if req.IsCallOut {
		intro = "A call-out was recorded and approved automatically. No action is needed."
		status = "APPROVED"
	}
	body := fmt.Sprintf("%s\n\n%s", intro, details(req, employee, status))
	if req.Reason != "" {
		body += fmt.Sprintf("Reason: %s\n", req.Reason)
	}
	return body + signature
}

func approvedBody(req leave.Request, employee leave.Employee) string {
	return fmt.Sprintf("Dear %s,\n\nGood news! Your PTO request has been approved by your manager.\n\n%s\nYour request is being processed and you will receive a final confirmation once all administrative tasks are complete.\n%s",
		employee.Name, details(req, employee, "APPROVED"), signature)
}

func deniedBody(req leave.Request, employee leave.Employee) string {
	reason := req.DenialReason
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("Dear %s,\n\nYour PTO request has been denied.\n\n%sReason for Denial: %s\n\nIf you have questions about this decision, please contact your manager directly.\n%s",
		employee.Name, details(req, employee, "DENIED"), reason, signature)
}

func completeBody(req leave.Request, employee leave.Employee) string {
	return fmt.Sprintf("Dear %s,\n\nYour PTO request has been fully processed and approved!\n\n%s\nAll requirements complete:\n- Manager approval received\n- Timekeeping has been entered\n- Coverage has been arranged\n\nYour PTO is now confirmed. Enjoy your time off!\n%s",
		employee.Name, details(req, employee, "FULLY APPROVED"), signature)
}

func registrationManagerBody(reg registration.Registration) string {
	var b strings.Builder
	b.WriteString("A new employee has registered and needs your approval.\n\n")
	fmt.Fprintf(&b, "Registration ID: #%s\n", reg.ID)
	fmt.Fprintf(&b, "Name: %s\n", reg.Name)
	fmt.Fprintf(&b, "Email: %s\n", reg.Email)
	fmt.Fprintf(&b, "Team: %s\n", reg.Team)
	fmt.Fprintf(&b, "Position: %s\n", reg.Position)
	fmt.Fprintf(&b, "Initial PTO: %.2f hours\n", reg.RequestedPTOHours)
	if reg.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", reg.Notes)
	}
	return b.String() + signature
}

func registrationApprovedBody(reg registration.Registration) string {
	return fmt.Sprintf("Dear %s,\n\nYour registration has been approved. You can now submit PTO requests.\n\nPosition: %s\nStarting PTO balance: %.2f hours\n%s",
		reg.Name, reg.Position, reg.RequestedPTOHours, signature)
}

func registrationDeniedBody(reg registration.Registration) string {
	return fmt.Sprintf("Dear %s,\n\nYour registration was not approved.\n\nReason: %s\n\nPlease contact your manager if you have questions.\n%s",
		reg.Name, reg.DenialReason, signature)
}
