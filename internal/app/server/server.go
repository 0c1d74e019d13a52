package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/employee"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/reports"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/db"
	audithandler "leavedesk/internal/transport/http/handlers/audit"
	authhandler "leavedesk/internal/transport/http/handlers/auth"
	employeehandler "leavedesk/internal/transport/http/handlers/employees"
	leavehandler "leavedesk/internal/transport/http/handlers/leave"
	reporthandler "leavedesk/internal/transport/http/handlers/reports"
	"leavedesk/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	auditService := audit.New(pool)
	leaveStore := leave.NewStore(pool)
	ledger := leave.NewLedger(leaveStore)
	leaveService := leave.NewService(leaveStore, ledger, auditService)
	employeeStore := employee.NewStore(pool)
	employeeService := employee.NewService(employeeStore, ledger)
	reportService := reports.New(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(300, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(employeeStore, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		employeehandler.NewHandler(employeeService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, employeeStore).RegisterRoutes(r)
		reporthandler.NewHandler(reportService).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)
	})

	log.Printf("leavedesk server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
