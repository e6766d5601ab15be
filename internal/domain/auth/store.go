package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ptotracker/internal/domain/staff"
)

var ErrManagerNotFound = errors.New("manager not found")

type Manager struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         staff.Role `json:"role"`
	Team         string     `json:"team"`
	Phone        string     `json:"phone,omitempty"`
}

type ManagerStore interface {
	FindManagerByEmail(ctx context.Context, email string) (Manager, error)
	ManagersByTeam(ctx context.Context, team string) ([]Manager, error)
	UpsertManager(ctx context.Context, manager *Manager) error
}

type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) FindManagerByEmail(ctx context.Context, email string) (Manager, error) {
	var m Manager
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, password_hash, role, team, phone
    FROM managers
    WHERE lower(email) = lower($1)
  `, strings.TrimSpace(email)).Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &role, &m.Team, &m.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Manager{}, ErrManagerNotFound
	}
	m.Role = staff.Role(role)
	return m, err
}

func (s *PGStore) ManagersByTeam(ctx context.Context, team string) ([]Manager, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, email, role, team, phone
    FROM managers
    WHERE team = $1 OR role = $2
    ORDER BY name
  `, team, string(staff.RoleSuperadmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Manager
	for rows.Next() {
		var m Manager
		var role string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &role, &m.Team, &m.Phone); err != nil {
			return nil, err
		}
		m.Role = staff.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) UpsertManager(ctx context.Context, manager *Manager) error {
	return s.DB.QueryRow(ctx, `
    INSERT INTO managers (name, email, password_hash, role, team, phone)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (email) DO UPDATE
      SET name = EXCLUDED.name, role = EXCLUDED.role, team = EXCLUDED.team, phone = EXCLUDED.phone
    RETURNING id
  `, manager.Name, manager.Email, manager.PasswordHash, string(manager.Role), manager.Team, manager.Phone).Scan(&manager.ID)
}

// MemoryStore backs logins when the tracker runs without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	managers map[string]Manager
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{managers: map[string]Manager{}}
}

func (s *MemoryStore) FindManagerByEmail(_ context.Context, email string) (Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return Manager{}, ErrManagerNotFound
	}
	return m, nil
}

func (s *MemoryStore) ManagersByTeam(_ context.Context, team string) ([]Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Manager
	for _, m := range s.managers {
		if m.Team == team || m.Role == staff.RoleSuperadmin {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertManager(_ context.Context, manager *Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(manager.Email))
	if existing, ok := s.managers[key]; ok {
		manager.ID = existing.ID
		if manager.PasswordHash == "" {
			manager.PasswordHash = existing.PasswordHash
		}
	}
	if manager.ID == "" {
		manager.ID = uuid.NewString()
	}
	s.managers[key] = *manager
	return nil
}
