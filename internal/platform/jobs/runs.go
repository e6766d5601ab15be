package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunStore records each job execution.
type RunStore interface {
	Start(ctx context.Context, jobType string) (string, error)
	Finish(ctx context.Context, id, status string, details []byte) error
}

type Run struct {
	ID          string     `json:"id"`
	JobType     string     `json:"jobType"`
	Status      string     `json:"status"`
	Details     []byte     `json:"details,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type PGRunStore struct {
	DB *pgxpool.Pool
}

func (s PGRunStore) Start(ctx context.Context, jobType string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, "running").Scan(&id)
	return id, err
}

func (s PGRunStore) Finish(ctx context.Context, id, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, id)
	return err
}

// MemoryRunStore keeps the most recent runs in process.
type MemoryRunStore struct {
	mu    sync.Mutex
	limit int
	runs  []Run
}

func NewMemoryRunStore(limit int) *MemoryRunStore {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryRunStore{limit: limit}
}

func (s *MemoryRunStore) Start(_ context.Context, jobType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := Run{ID: uuid.NewString(), JobType: jobType, Status: "running", StartedAt: time.Now().UTC()}
	s.runs = append(s.runs, run)
	if len(s.runs) > s.limit {
		s.runs = s.runs[len(s.runs)-s.limit:]
	}
	return run.ID, nil
}

func (s *MemoryRunStore) Finish(_ context.Context, id, status string, details []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == id {
			now := time.Now().UTC()
			s.runs[i].Status = status
			s.runs[i].Details = details
			s.runs[i].CompletedAt = &now
			return nil
		}
	}
	return nil
}

// Recent returns the recorded runs, newest last.
func (s *MemoryRunStore) Recent() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}
