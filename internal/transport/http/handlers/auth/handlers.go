package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ptotracker/internal/domain/auth"
	"ptotracker/internal/transport/http/api"
	"ptotracker/internal/transport/http/middleware"
	"ptotracker/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{Service: service}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type meResponse struct {
	ManagerID string `json:"managerId"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Team      string `json:"team"`
}

// RegisterRoutes mounts the login endpoint behind its own email-or-IP limiter.
func (h *Handler) RegisterRoutes(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		if loginLimit != nil {
			r.With(loginLimit).Post("/login", h.HandleLogin)
		} else {
			r.Post("/login", h.HandleLogin)
		}
		r.With(middleware.RequireManager).Get("/me", h.HandleMe)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))

	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
			return
		}
		slog.Warn("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", requestID)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	api.Success(w, meResponse{
		ManagerID: p.ManagerID,
		Name:      p.Name,
		Role:      string(p.Role),
		Team:      p.Team,
	}, middleware.GetRequestID(r.Context()))
}
