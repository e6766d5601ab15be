// Package audit keeps a trail of who changed which request or employee.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

const (
	ActionRequestApproved  = "request.approve"
	ActionRequestDenied    = "request.deny"
	ActionRequestChecklist = "request.checklist"
	ActionRequestSweep     = "request.sweep"
	ActionCallOut          = "request.call_out"
	ActionEmployeeCreate   = "employee.create"
	ActionBalanceRefresh   = "employee.balance_refresh"
	ActionEmployeeUpdate   = "employee.update"
	ActionEmployeeDelete   = "employee.deactivate"
	ActionRegistration     = "registration.submit"
	ActionRegistrationOK   = "registration.approve"
	ActionRegistrationDeny = "registration.deny"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

func (f Filter) matches(evt Event) bool {
	return (f.Action == "" || f.Action == evt.Action) &&
		(f.EntityType == "" || f.EntityType == evt.EntityType) &&
		(f.ActorID == "" || f.ActorID == evt.ActorID)
}

type Store interface {
	Insert(ctx context.Context, evt *Event) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error)
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func New(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

// Record stores one event. before and after are marshalled as JSON when set.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	if s == nil || s.Store == nil {
		return nil
	}
	evt := Event{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
		CreatedAt:  s.Now().UTC(),
	}
	var err error
	if evt.Before, err = marshalOptional(before); err != nil {
		return err
	}
	if evt.After, err = marshalOptional(after); err != nil {
		return err
	}
	return s.Store.Insert(ctx, &evt)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.Store.Count(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	return s.Store.List(ctx, filter, includeDetails, limit, offset)
}

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
