// Package notifications tells employees and manager inboxes about request
// transitions. Delivery is best effort: failures are logged and never
// reported back to the caller.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ptotracker/internal/domain/callout"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/registration"
)

const (
	EventSubmitted         = "submitted"
	EventCallOutApproved   = "call_out_approved"
	EventApproved          = "approved"
	EventDenied            = "denied"
	EventChecklistComplete = "checklist_complete"

	EventRegistrationSubmitted = "registration_submitted"
	EventRegistrationApproved  = "registration_approved"
	EventRegistrationDenied    = "registration_denied"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type Notifier struct {
	Mailer Mailer
	SMS    SMSSender
	From   string
	// TeamInbox maps a manager team to the inbox that hears about new requests.
	TeamInbox map[string]string
	// TeamOnCall maps a manager team to the phone alerted on call-outs.
	TeamOnCall map[string]string
	// AuditInbox gets a copy of every submission when set.
	AuditInbox string
}

// Notify dispatches the messages for one event.
func (n *Notifier) Notify(ctx context.Context, event string, req leave.Request, employee leave.Employee) {
	if n == nil {
		return
	}
	switch event {
	case EventSubmitted, EventCallOutApproved:
		n.submitted(ctx, req, employee)
	case EventApproved:
		n.mail(ctx, event, employee.Email, fmt.Sprintf("PTO Request Approved - Request #%s", req.ID), approvedBody(req, employee))
	case EventDenied:
		n.mail(ctx, event, employee.Email, fmt.Sprintf("PTO Request Denied - Request #%s", req.ID), deniedBody(req, employee))
	case EventChecklistComplete:
		n.mail(ctx, event, employee.Email, fmt.Sprintf("PTO Request Fully Approved - Request #%s", req.ID), completeBody(req, employee))
	default:
		slog.Warn("unknown notification event", "event", event, "requestId", req.ID)
	}
}

func (n *Notifier) submitted(ctx context.Context, req leave.Request, employee leave.Employee) {
	subject := fmt.Sprintf("PTO Request Submitted - Request #%s", req.ID)
	managerSubject := fmt.Sprintf("New PTO Request - %s", employee.Name)
	auditSubject := fmt.Sprintf("[PTO System] New PTO Request - %s", employee.Name)
	event := EventSubmitted
	if req.IsCallOut {
		subject = fmt.Sprintf("CALL-OUT Approved - Request #%s", req.ID)
		managerSubject = fmt.Sprintf("CALL-OUT Auto-Approved (FYI) - %s", employee.Name)
		auditSubject = fmt.Sprintf("[PTO System] Call-Out Auto-Approved - %s", employee.Name)
		event = EventCallOutApproved
	}

	n.mail(ctx, event, employee.Email, subject, submittedBody(req, employee))
	body := managerBody(req, employee)
	n.mail(ctx, event, n.TeamInbox[req.ManagerTeam], managerSubject, body)
	n.mail(ctx, event, n.AuditInbox, auditSubject, body)

	if req.IsCallOut {
		n.sms(ctx, event, employee.Phone, callout.ConfirmationMessage(employee.Name, req.ID))
		n.sms(ctx, event, n.TeamOnCall[req.ManagerTeam], callout.ManagerAlertMessage(employee.Name, req.ID))
	}
}

// NotifyRegistration tells the team inbox about a new registration and the
// registrant about the decision.
func (n *Notifier) NotifyRegistration(ctx context.Context, event string, reg registration.Registration) {
	if n == nil {
		return
	}
	switch event {
	case EventRegistrationSubmitted:
		body := registrationManagerBody(reg)
		n.mail(ctx, event, n.TeamInbox[reg.ManagerTeam()], fmt.Sprintf("New Employee Registration - %s", reg.Name), body)
		n.mail(ctx, event, n.AuditInbox, fmt.Sprintf("[PTO System] New Employee Registration - %s", reg.Name), body)
	case EventRegistrationApproved:
		n.mail(ctx, event, reg.Email, "Welcome to the PTO System - Registration Approved", registrationApprovedBody(reg))
	case EventRegistrationDenied:
		n.mail(ctx, event, reg.Email, "PTO System Registration Update", registrationDeniedBody(reg))
	default:
		slog.Warn("unknown notification event", "event", event, "registrationId", reg.ID)
	}
}

func (n *Notifier) mail(ctx context.Context, event, to, subject, body string) {
	if n.Mailer == nil || strings.TrimSpace(to) == "" {
		return
	}
	if err := n.Mailer.Send(ctx, n.From, to, subject, body); err != nil {
		slog.Warn("notification email send failed", "event", event, "err", err)
	}
}

func (n *Notifier) sms(ctx context.Context, event, to, body string) {
	if n.SMS == nil || strings.TrimSpace(to) == "" {
		return
	}
	if err := n.SMS.SendSMS(ctx, to, body); err != nil {
		slog.Warn("notification sms send failed", "event", event, "err", err)
	}
}
