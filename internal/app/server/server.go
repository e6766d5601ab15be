package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"ptotracker/internal/domain/audit"
	"ptotracker/internal/domain/auth"
	"ptotracker/internal/domain/calendar"
	"ptotracker/internal/domain/callout"
	"ptotracker/internal/domain/leave"
	"ptotracker/internal/domain/notifications"
	"ptotracker/internal/domain/registration"
	"ptotracker/internal/domain/staff"
	"ptotracker/internal/platform/config"
	"ptotracker/internal/platform/db"
	"ptotracker/internal/platform/email"
	"ptotracker/internal/platform/jobs"
	"ptotracker/internal/platform/metrics"
	"ptotracker/internal/platform/sms"
	"ptotracker/internal/transport/http/api"
	audithandler "ptotracker/internal/transport/http/handlers/audit"
	authhandler "ptotracker/internal/transport/http/handlers/auth"
	calendarhandler "ptotracker/internal/transport/http/handlers/calendar"
	callouthandler "ptotracker/internal/transport/http/handlers/callouts"
	employeehandler "ptotracker/internal/transport/http/handlers/employees"
	leavehandler "ptotracker/internal/transport/http/handlers/leave"
	registrationhandler "ptotracker/internal/transport/http/handlers/registrations"
	"ptotracker/internal/transport/http/middleware"
)

const devJWTSecret = "dev-only-change-me"

type App struct {
	Config    config.Config
	DB        *db.Pool
	Router    http.Handler
	Lifecycle *leave.Service
	Managers  *auth.Service
	Audit     *audit.Service
	Jobs      *jobs.Service
	Metrics   *metrics.Collector
	// Registrations queues people who are not yet employees.
	Registrations *registration.Service

	cancel context.CancelFunc
}

// New wires the stores, services and router for cfg and starts the job
// scheduler. Call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	app := &App{Config: cfg, Metrics: metrics.New()}

	var (
		leaveStore   leave.Store
		managerStore auth.ManagerStore
		runStore     jobs.RunStore
		auditStore   audit.Store
		regStore     registration.Store
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		leaveStore = leave.NewMemoryStore()
		managerStore = auth.NewMemoryStore()
		runStore = jobs.NewMemoryRunStore(100)
		auditStore = audit.NewMemoryStore()
		regStore = registration.NewMemoryStore()
	default:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		leaveStore = leave.NewPGStore(pool)
		managerStore = auth.NewPGStore(pool)
		runStore = jobs.PGRunStore{DB: pool}
		auditStore = audit.NewPGStore(pool)
		regStore = registration.NewPGStore(pool)
	}

	app.Lifecycle = leave.NewService(leaveStore, calendar.Default)
	app.Managers = auth.NewService(managerStore, cfg.JWTSecret)
	app.Audit = audit.New(auditStore)
	app.Registrations = registration.NewService(regStore, app.Lifecycle, leave.RefreshPolicy{PTOHours: cfg.DefaultPTOHours, SickHours: cfg.DefaultSickHours})
	if cfg.RunSeed {
		if err := db.Seed(ctx, cfg, app.Managers, app.Lifecycle); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.Jobs = jobs.New(runStore, app.Lifecycle, cfg)
	if err := app.Jobs.Start(jobCtx); err != nil {
		app.Close()
		return nil, fmt.Errorf("start jobs: %w", err)
	}

	notifier := &notifications.Notifier{
		Mailer:     email.New(cfg),
		SMS:        sms.New(cfg),
		From:       cfg.EmailFrom,
		TeamInbox:  map[string]string{staff.TeamAdmin: cfg.AdminEmail, staff.TeamClinical: cfg.ClinicalEmail},
		TeamOnCall: map[string]string{staff.TeamAdmin: cfg.AdminOnCall, staff.TeamClinical: cfg.ClinicalOnCall},
		AuditInbox: cfg.AuditEmail,
	}
	callouts := callout.NewService(leaveStore, app.Lifecycle, cfg.Location())

	app.Router = app.routes(leaveStore, notifier, callouts)
	return app, nil
}

func (a *App) routes(store leave.Store, notifier *notifications.Notifier, callouts *callout.Service) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequireRole(staff.RoleSuperadmin)).Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	loc := cfg.Location()
	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(a.Managers)
		authHandler.RegisterRoutes(r, middleware.RateLimit(10, time.Minute, middleware.WithKeyFunc(middleware.AuthEmailOrIPKey("email"))))

		leaveHandler := leavehandler.NewHandler(a.Lifecycle, notifier, a.Jobs, a.Audit, a.Metrics, loc)
		leaveHandler.RegisterRoutes(r)

		calendarHandler := calendarhandler.NewHandler(a.Lifecycle.Calendar, a.Lifecycle)
		calendarHandler.RegisterRoutes(r)

		employeeHandler := employeehandler.NewHandler(a.Lifecycle, a.Jobs, a.Audit, a.Metrics, loc)
		employeeHandler.RegisterRoutes(r)

		calloutHandler := callouthandler.NewHandler(callouts, notifier, a.Audit, a.Metrics)
		calloutHandler.RegisterRoutes(r, middleware.RateLimit(5, 10*time.Minute, middleware.WithKeyFunc(middleware.CallerPhoneKey("phone"))))

		registrationHandler := registrationhandler.NewHandler(a.Registrations, notifier, a.Audit, a.Metrics)
		registrationHandler.RegisterRoutes(r, middleware.RateLimit(5, 10*time.Minute, middleware.WithKeyFunc(middleware.AuthEmailOrIPKey("email"))))

		auditHandler := audithandler.NewHandler(a.Audit)
		auditHandler.RegisterRoutes(r)
	})

	return router
}

// Close stops the scheduler and releases the database pool.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("PTO tracker listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
