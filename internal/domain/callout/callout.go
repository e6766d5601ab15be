// Package callout turns a same-day sick call from a known phone number into an
// approved call-out request.
package callout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/staff"
)

var ErrUnknownCaller = errors.New("phone number not registered")

const (
	SourceSMS   = "sms"
	SourcePhone = "phone"
	SourceWeb   = "web"
)

// Stripped once each, in this order.
var reasonPrefixes = []string{
	"calling out",
	"call out",
	"calling in sick",
	"calling in",
	"sick today",
	"sick",
	"-",
	":",
}

// ExtractReason strips the usual lead-in words from a call-out message.
func ExtractReason(body string) string {
	reason := strings.TrimSpace(body)
	for _, prefix := range reasonPrefixes {
		if strings.HasPrefix(strings.ToLower(reason), prefix) {
			reason = strings.TrimSpace(reason[len(prefix):])
		}
	}
	if reason == "" {
		return "Not specified"
	}
	return reason
}

type Lookup interface {
	FindEmployeeByPhone(ctx context.Context, normalizedPhone string) (leave.Employee, error)
}

type Submitter interface {
	Submit(ctx context.Context, in leave.SubmitInput) (leave.Request, error)
}

type Service struct {
	Employees Lookup
	Requests  Submitter
	Location  *time.Location
	Now       func() time.Time
}

func NewService(employees Lookup, requests Submitter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Employees: employees, Requests: requests, Location: loc, Now: time.Now}
}

type Result struct {
	Request  leave.Request  `json:"request"`
	Employee leave.Employee `json:"employee"`
	Message  string         `json:"message"`
}

// Intake records a call-out for today in the service's location.
func (s *Service) Intake(ctx context.Context, phone, message, source string) (Result, error) {
	normalized := staff.NormalizePhone(phone)
	employee, err := s.Employees.FindEmployeeByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			slog.Warn("call-out from unknown number", "phone", normalized, "source", source)
			return Result{}, ErrUnknownCaller
		}
		return Result{}, err
	}

	if source == "" {
		source = SourceSMS
	}
	today := calendar.DateOf(s.now().In(s.Location)).String()
	req, err := s.Requests.Submit(ctx, leave.SubmitInput{
		EmployeeID: employee.ID,
		StartDate:  today,
		EndDate:    today,
		Type:       leave.TypeCallOut,
		Reason:     fmt.Sprintf("Call-out via %s: %s", strings.ToUpper(source), ExtractReason(message)),
		IsCallOut:  true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create call-out for %s: %w", employee.ID, err)
	}
	slog.Info("call-out recorded", "requestId", req.ID, "employeeId", employee.ID, "source", source)

	return Result{
		Request:  req,
		Employee: employee,
		Message:  ConfirmationMessage(employee.Name, req.ID),
	}, nil
}

func ConfirmationMessage(name, requestID string) string {
	return fmt.Sprintf("Call-out recorded, %s. Request #%s has been submitted to your manager. Feel better!", name, requestID)
}

func ManagerAlertMessage(name, requestID string) string {
	return fmt.Sprintf("URGENT: %s called out sick today. Request #%s. Check your email for details.", name, requestID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
