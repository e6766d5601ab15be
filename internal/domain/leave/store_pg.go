package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ptotracker/internal/domain/calendar"
)

// PGStore persists requests and employees in Postgres. Dates stay TEXT so
// that rows with malformed dates still load and fall through the duration
// policy instead of failing the scan.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

// queryer is satisfied by both the pool and an open transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const requestColumns = `
  id, employee_id, employee_name, position, manager_team, start_date, end_date, leave_type,
  partial_day, start_time, end_time, reason, status, denial_reason, timekeeping_entered,
  coverage_arranged, is_call_out, duration_hours, duration_tier, decided_by,
  submitted_at, approved_at, completed_at, updated_at`

const employeeColumns = `
  id, name, email, phone, team, position, pto_hours, sick_hours, refresh_date, created_at,
  deactivated_at`

func (s *PGStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.Warn("leave tx rollback failed", "err", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *PGStore) GetRequest(ctx context.Context, id string) (Request, error) {
	return getRequest(ctx, s.DB, id, false)
}

func (s *PGStore) ListRequests(ctx context.Context, filter Filter) (RequestListResult, error) {
	where, args := filterClause(filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM pto_requests"+where, args...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	query := "SELECT" + requestColumns + " FROM pto_requests" + where + " ORDER BY submitted_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	requests := make([]Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return RequestListResult{}, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return RequestListResult{}, err
	}
	return RequestListResult{Requests: requests, Total: total}, nil
}

func filterClause(filter Filter) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		names := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			names = append(names, status.String())
		}
		conds = append(conds, "status = ANY("+next(names)+")")
	}
	if filter.EmployeeID != "" {
		conds = append(conds, "employee_id = "+next(filter.EmployeeID))
	}
	if filter.CallOut != nil {
		conds = append(conds, "is_call_out = "+next(*filter.CallOut))
	}
	switch {
	case len(filter.ManagerTeams) > 0 && len(filter.Positions) > 0:
		conds = append(conds, "(manager_team = ANY("+next(filter.ManagerTeams)+") OR position = ANY("+next(filter.Positions)+"))")
	case len(filter.ManagerTeams) > 0:
		conds = append(conds, "manager_team = ANY("+next(filter.ManagerTeams)+")")
	case len(filter.Positions) > 0:
		conds = append(conds, "position = ANY("+next(filter.Positions)+")")
	}
	if filter.From != "" {
		conds = append(conds, "end_date >= "+next(filter.From))
	}
	if filter.To != "" {
		conds = append(conds, "start_date <= "+next(filter.To))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PGStore) GetEmployee(ctx context.Context, id string) (Employee, error) {
	return getEmployee(ctx, s.DB, id, false)
}

func (s *PGStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT"+employeeColumns+" FROM employees ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (s *PGStore) FindEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE lower(email) = lower($1)", strings.TrimSpace(email))
	return notFound[Employee](scanEmployee(row))
}

func (s *PGStore) FindEmployeeByPhone(ctx context.Context, normalizedPhone string) (Employee, error) {
	if normalizedPhone == "" {
		return Employee{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE phone = $1 AND deactivated_at IS NULL LIMIT 1", normalizedPhone)
	return notFound[Employee](scanEmployee(row))
}

func (s *PGStore) CreateEmployee(ctx context.Context, employee *Employee) error {
	var refresh *string
	if !employee.RefreshDate.IsZero() {
		value := employee.RefreshDate.String()
		refresh = &value
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (name, email, phone, team, position, pto_hours, sick_hours, refresh_date, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, employee.Name, employee.Email, employee.Phone, employee.Team, employee.Position,
		employee.Balance.PTOHours, employee.Balance.SickHours, refresh, employee.CreatedAt).Scan(&employee.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmployee
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) CreateRequest(ctx context.Context, req *Request) error {
	return t.tx.QueryRow(ctx, `
    INSERT INTO pto_requests (employee_id, employee_name, position, manager_team, start_date, end_date,
      leave_type, partial_day, start_time, end_time, reason, status, is_call_out, duration_hours,
      duration_tier, submitted_at, approved_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
    RETURNING id
  `, req.EmployeeID, req.EmployeeName, req.Position, req.ManagerTeam, req.StartDate, req.EndDate,
		string(req.Type), req.PartialDay, req.StartTime, req.EndTime, req.Reason, req.Status.String(),
		req.IsCallOut, req.DurationHours, req.DurationTier.String(), req.SubmittedAt, req.ApprovedAt,
		req.UpdatedAt).Scan(&req.ID)
}

func (t pgTx) RequestForUpdate(ctx context.Context, id string) (Request, error) {
	return getRequest(ctx, t.tx, id, true)
}

func (t pgTx) UpdateRequest(ctx context.Context, req Request) error {
	tag, err := t.tx.Exec(ctx, `
    UPDATE pto_requests
    SET status = $2, denial_reason = $3, timekeeping_entered = $4, coverage_arranged = $5,
        decided_by = $6, approved_at = $7, completed_at = $8, updated_at = $9
    WHERE id = $1
  `, req.ID, req.Status.String(), req.DenialReason, req.TimekeepingEntered, req.CoverageArranged,
		req.DecidedBy, req.ApprovedAt, req.CompletedAt, req.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) ApprovedRequestsForUpdate(ctx context.Context) ([]Request, error) {
	rows, err := t.tx.Query(ctx, "SELECT"+requestColumns+" FROM pto_requests WHERE status = $1 ORDER BY id FOR UPDATE", StatusApproved.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (t pgTx) EmployeeForUpdate(ctx context.Context, id string) (Employee, error) {
	return getEmployee(ctx, t.tx, id, true)
}

func (t pgTx) DueForRefreshForUpdate(ctx context.Context, asOf string) ([]Employee, error) {
	rows, err := t.tx.Query(ctx, "SELECT"+employeeColumns+`
    FROM employees
    WHERE deactivated_at IS NULL AND (refresh_date IS NULL OR refresh_date <= $1)
    ORDER BY id
    FOR UPDATE`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (t pgTx) UpdateEmployeeBalance(ctx context.Context, employee Employee) error {
	var refresh *string
	if !employee.RefreshDate.IsZero() {
		value := employee.RefreshDate.String()
		refresh = &value
	}
	tag, err := t.tx.Exec(ctx, `
    UPDATE employees SET pto_hours = $2, sick_hours = $3, refresh_date = $4, updated_at = now()
    WHERE id = $1
  `, employee.ID, employee.Balance.PTOHours, employee.Balance.SickHours, refresh)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) UpdateEmployee(ctx context.Context, employee Employee) error {
	var refresh *string
	if !employee.RefreshDate.IsZero() {
		value := employee.RefreshDate.String()
		refresh = &value
	}
	tag, err := t.tx.Exec(ctx, `
    UPDATE employees
    SET name = $2, email = $3, phone = $4, team = $5, position = $6, pto_hours = $7,
        sick_hours = $8, refresh_date = $9, deactivated_at = $10, updated_at = now()
    WHERE id = $1
  `, employee.ID, employee.Name, employee.Email, employee.Phone, employee.Team, employee.Position,
		employee.Balance.PTOHours, employee.Balance.SickHours, refresh, employee.DeactivatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmployee
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getRequest(ctx context.Context, db queryer, id string, lock bool) (Request, error) {
	query := "SELECT" + requestColumns + " FROM pto_requests WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	return notFound[Request](scanRequest(db.QueryRow(ctx, query, id)))
}

func getEmployee(ctx context.Context, db queryer, id string, lock bool) (Employee, error) {
	query := "SELECT" + employeeColumns + " FROM employees WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	return notFound[Employee](scanEmployee(db.QueryRow(ctx, query, id)))
}

// notFound maps missing rows, and ids that are not valid UUIDs, to ErrNotFound.
func notFound[T any](value T, err error) (T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return value, ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return value, ErrNotFound
	}
	return value, err
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var leaveType, status, tier string
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &req.Position, &req.ManagerTeam,
		&req.StartDate, &req.EndDate, &leaveType, &req.PartialDay, &req.StartTime, &req.EndTime,
		&req.Reason, &status, &req.DenialReason, &req.TimekeepingEntered, &req.CoverageArranged,
		&req.IsCallOut, &req.DurationHours, &tier, &req.DecidedBy, &req.SubmittedAt,
		&req.ApprovedAt, &req.CompletedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return Request{}, fmt.Errorf("request %s: %w", req.ID, err)
	}
	req.Status = parsed
	req.Type = LeaveType(leaveType)
	req.DurationTier = ParseDurationTier(tier)
	return req, nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var employee Employee
	var refresh *string
	var createdAt time.Time
	if err := row.Scan(&employee.ID, &employee.Name, &employee.Email, &employee.Phone, &employee.Team,
		&employee.Position, &employee.Balance.PTOHours, &employee.Balance.SickHours, &refresh, &createdAt,
		&employee.DeactivatedAt); err != nil {
		return Employee{}, err
	}
	employee.CreatedAt = createdAt
	if refresh != nil {
		if date, err := calendar.ParseDate(*refresh); err == nil {
			employee.RefreshDate = date
		} else {
			slog.Warn("employee refresh date unreadable", "employeeId", employee.ID, "value", *refresh)
		}
	}
	return employee, nil
}
