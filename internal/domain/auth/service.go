package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const TokenTTL = 12 * time.Hour

type Service struct {
	Store  ManagerStore
	Secret string
	TTL    time.Duration
}

func NewService(store ManagerStore, secret string) *Service {
	return &Service{Store: store, Secret: secret, TTL: TokenTTL}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Manager   Manager   `json:"manager"`
}

// Login checks a manager's password and issues a bearer token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	manager, err := s.Store.FindManagerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrManagerNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := CheckPassword(manager.PasswordHash, password); err != nil {
		slog.Warn("manager login rejected", "managerId", manager.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = TokenTTL
	}
	token, err := GenerateToken(s.Secret, Claims{
		ManagerID: manager.ID,
		Name:      manager.Name,
		Role:      manager.Role,
		Team:      manager.Team,
	}, ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: time.Now().Add(ttl).UTC(), Manager: manager}, nil
}

// EnsureManager creates or updates a manager account, hashing the password
// when one is given.
func (s *Service) EnsureManager(ctx context.Context, manager Manager, password string) (Manager, error) {
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return Manager{}, err
		}
		manager.PasswordHash = hash
	}
	if err := s.Store.UpsertManager(ctx, &manager); err != nil {
		return Manager{}, err
	}
	return manager, nil
}
