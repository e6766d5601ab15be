package registration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

const columns = `id, name, email, phone, team, position, notes, requested_pto_hours, status,
  denial_reason, decided_by, COALESCE(employee_id::text, ''), submitted_at, decided_at`

func (s *PGStore) Create(ctx context.Context, reg *Registration) error {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employee_registrations (name, email, phone, team, position, notes, requested_pto_hours, status, submitted_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, reg.Name, reg.Email, reg.Phone, reg.Team, reg.Position, reg.Notes, reg.RequestedPTOHours,
		string(reg.Status), reg.SubmittedAt).Scan(&reg.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyPending
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (Registration, error) {
	reg, err := scan(s.DB.QueryRow(ctx, "SELECT "+columns+" FROM employee_registrations WHERE id = $1", id))
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
		return Registration{}, ErrNotFound
	}
	return reg, err
}

func (s *PGStore) List(ctx context.Context, filter Filter) ([]Registration, error) {
	query := "SELECT " + columns + " FROM employee_registrations WHERE 1=1"
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(filter.Teams) > 0 {
		args = append(args, filter.Teams)
		query += fmt.Sprintf(" AND team = ANY($%d)", len(args))
	}
	query += " ORDER BY submitted_at DESC, id DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Registration{}
	for rows.Next() {
		reg, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (s *PGStore) Decide(ctx context.Context, reg Registration) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employee_registrations
    SET status = $2, denial_reason = $3, decided_by = $4, decided_at = $5
    WHERE id = $1 AND status = 'pending'
  `, reg.ID, string(reg.Status), reg.DenialReason, reg.DecidedBy, reg.DecidedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}
	return nil
}

func (s *PGStore) Reopen(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE employee_registrations
    SET status = 'pending', decided_by = '', decided_at = NULL
    WHERE id = $1 AND status = 'approved' AND employee_id IS NULL
  `, id)
	return err
}

func (s *PGStore) LinkEmployee(ctx context.Context, id, employeeID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE employee_registrations SET employee_id = $2 WHERE id = $1", id, employeeID)
	return err
}

func scan(row pgx.Row) (Registration, error) {
	var reg Registration
	var status string
	if err := row.Scan(&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &reg.Team, &reg.Position, &reg.Notes,
		&reg.RequestedPTOHours, &status, &reg.DenialReason, &reg.DecidedBy, &reg.EmployeeID,
		&reg.SubmittedAt, &reg.DecidedAt); err != nil {
		return Registration{}, err
	}
	reg.Status = Status(status)
	return reg, nil
}

// MemoryStore keeps registrations in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	regs map[string]Registration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{regs: map[string]Registration{}}
}

func (s *MemoryStore) Create(_ context.Context, reg *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.regs {
		if existing.Status == StatusPending && strings.EqualFold(existing.Email, reg.Email) {
			return ErrAlreadyPending
		}
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	s.regs[reg.ID] = *reg
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	return reg, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Registration{}
	for _, reg := range s.regs {
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		if len(filter.Teams) > 0 && !slices.Contains(filter.Teams, reg.Team) {
			continue
		}
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *MemoryStore) Decide(_ context.Context, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.regs[reg.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != StatusPending {
		return ErrAlreadyDecided
	}
	current.Status = reg.Status
	current.DenialReason = reg.DenialReason
	current.DecidedBy = reg.DecidedBy
	current.DecidedAt = reg.DecidedAt
	s.regs[reg.ID] = current
	return nil
}

func (s *MemoryStore) Reopen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.regs[id]
	if !ok || current.Status != StatusApproved || current.EmployeeID != "" {
		return nil
	}
	current.Status = StatusPending
	current.DecidedBy = ""
	current.DecidedAt = nil
	s.regs[id] = current
	return nil
}

func (s *MemoryStore) LinkEmployee(_ context.Context, id, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.regs[id]
	if !ok {
		return ErrNotFound
	}
	current.EmployeeID = employeeID
	s.regs[id] = current
	return nil
}
