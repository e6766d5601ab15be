package leave

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ptotracker/internal/domain/staff"
)

// MemoryStore keeps records in process memory. Transactions are serialised
// and a failed one restores the state it started from.
type MemoryStore struct {
	mu        sync.Mutex
	requests  map[string]Request
	employees map[string]Employee
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  map[string]Request{},
		employees: map[string]Employee{},
	}
}

func (s *MemoryStore) WithTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := maps.Clone(s.requests)
	employees := maps.Clone(s.employees)
	if err := fn(memTx{store: s}); err != nil {
		s.requests = requests
		s.employees = employees
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) ListRequests(_ context.Context, filter Filter) (RequestListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Request, 0)
	for _, req := range s.requests {
		if filter.matches(req) {
			matched = append(matched, req)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return RequestListResult{Requests: matched[start:end], Total: total}, nil
}

func (s *MemoryStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	employee, ok := s.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return employee, nil
}

func (s *MemoryStore) ListEmployees(_ context.Context) ([]Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.employees))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) FindEmployeeByEmail(_ context.Context, email string) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, employee := range s.employees {
		if strings.EqualFold(employee.Email, strings.TrimSpace(email)) {
			return employee, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (s *MemoryStore) FindEmployeeByPhone(_ context.Context, normalizedPhone string) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if normalizedPhone == "" {
		return Employee{}, ErrNotFound
	}
	for _, employee := range s.employees {
		if employee.Active() && staff.NormalizePhone(employee.Phone) == normalizedPhone {
			return employee, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (s *MemoryStore) CreateEmployee(_ context.Context, employee *Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.employees {
		if employee.Email != "" && strings.EqualFold(existing.Email, employee.Email) {
			return ErrDuplicateEmployee
		}
	}
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if _, ok := s.employees[employee.ID]; ok {
		return ErrDuplicateEmployee
	}
	s.employees[employee.ID] = *employee
	return nil
}

// PutRequest stores a request as-is, bypassing the lifecycle. Used to load
// fixtures and imported history.
func (s *MemoryStore) PutRequest(req Request) Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s.requests[req.ID] = req
	return req
}

// memTx runs with the store mutex held.
type memTx struct {
	store *MemoryStore
}

func (t memTx) CreateRequest(_ context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	t.store.requests[req.ID] = *req
	return nil
}

func (t memTx) RequestForUpdate(_ context.Context, id string) (Request, error) {
	req, ok := t.store.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (t memTx) UpdateRequest(_ context.Context, req Request) error {
	if _, ok := t.store.requests[req.ID]; !ok {
		return ErrNotFound
	}
	t.store.requests[req.ID] = req
	return nil
}

func (t memTx) ApprovedRequestsForUpdate(_ context.Context) ([]Request, error) {
	out := make([]Request, 0)
	for _, req := range t.store.requests {
		if req.Status == StatusApproved {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t memTx) EmployeeForUpdate(_ context.Context, id string) (Employee, error) {
	employee, ok := t.store.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return employee, nil
}

func (t memTx) DueForRefreshForUpdate(_ context.Context, asOf string) ([]Employee, error) {
	out := make([]Employee, 0)
	for _, employee := range t.store.employees {
		if !employee.Active() {
			continue
		}
		if employee.RefreshDate.IsZero() || employee.RefreshDate.String() <= asOf {
			out = append(out, employee)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t memTx) UpdateEmployeeBalance(_ context.Context, employee Employee) error {
	current, ok := t.store.employees[employee.ID]
	if !ok {
		return ErrNotFound
	}
	current.Balance = employee.Balance
	current.RefreshDate = employee.RefreshDate
	t.store.employees[employee.ID] = current
	return nil
}

func (t memTx) UpdateEmployee(_ context.Context, employee Employee) error {
	if _, ok := t.store.employees[employee.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range t.store.employees {
		if id != employee.ID && employee.Email != "" && strings.EqualFold(existing.Email, employee.Email) {
			return ErrDuplicateEmployee
		}
	}
	t.store.employees[employee.ID] = employee
	return nil
}

func (f Filter) matches(req Request) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, req.Status) {
		return false
	}
	if f.EmployeeID != "" && req.EmployeeID != f.EmployeeID {
		return false
	}
	if f.CallOut != nil && req.IsCallOut != *f.CallOut {
		return false
	}
	if len(f.ManagerTeams) > 0 || len(f.Positions) > 0 {
		inScope := slices.Contains(f.ManagerTeams, req.ManagerTeam) || slices.Contains(f.Positions, req.Position)
		if !inScope {
			return false
		}
	}
	// Window overlap on YYYY-MM-DD strings, which sort as dates.
	if f.From != "" && req.EndDate < f.From {
		return false
	}
	if f.To != "" && req.StartDate > f.To {
		return false
	}
	return true
}
