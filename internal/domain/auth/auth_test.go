package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"ptotracker/internal/domain/staff"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password match: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{ManagerID: "m1", Role: staff.RoleClinical, Team: staff.TeamClinical}, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.ManagerID != "m1" || claims.Role != staff.RoleClinical || claims.Subject != "m1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, err := GenerateToken("s", Claims{ManagerID: "m1", Role: staff.Role("janitor")}, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", token); err == nil {
		t.Fatal("expected role rejection")
	}
}

func TestLogin(t *testing.T) {
	svc := NewService(NewMemoryStore(), "secret")
	ctx := context.Background()
	if _, err := svc.EnsureManager(ctx, Manager{Name: "Ana", Email: "Ana@Example.com", Role: staff.RoleAdmin, Team: staff.TeamAdmin}, "pw"); err != nil {
		t.Fatalf("ensure manager: %v", err)
	}

	result, err := svc.Login(ctx, "ana@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := ParseToken("secret", result.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != staff.RoleAdmin || claims.ManagerID != result.Manager.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := svc.Login(ctx, "ana@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
