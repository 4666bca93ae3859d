// Command keyguard serves the key administration API and an example route
// protected by API key validation.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/admin"
	"github.com/ferro-labs/keyguard/internal/logging"
	"github.com/ferro-labs/keyguard/internal/store"
	"github.com/ferro-labs/keyguard/internal/version"
)

func main() {
	cfg := keyguard.DefaultConfig()
	if cfgPath := os.Getenv("KEYGUARD_CONFIG"); cfgPath != "" {
		loaded, err := keyguard.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	applyEnv(&cfg)
	if err := keyguard.ValidateConfig(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", backendName(cfg.Store), err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logging.Logger.Error("store close failed", "error", err)
		}
	}()
	instrumented := store.Instrument(backend, backendName(cfg.Store))

	manager, err := keyguard.NewKeyManager(instrumented, keyguard.WithHeader(cfg.Header))
	if err != nil {
		log.Fatalf("Failed to create key manager: %v", err)
	}

	adminToken := ""
	if cfg.Admin.TokenEnv != "" {
		adminToken = os.Getenv(cfg.Admin.TokenEnv)
	}
	if adminToken == "" {
		logging.Logger.Warn("admin token not set; admin API disabled", "env", cfg.Admin.TokenEnv)
	}

	r, err := newRouter(manager, instrumented, adminToken, cfg.Server.CORSOrigins)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logging.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Error("shutdown error", "error", err)
		}
	}()

	logging.Logger.Info("keyguard listening",
		"version", version.Short(),
		"addr", cfg.Server.Addr,
		"store", backendName(cfg.Store),
		"header", manager.Header(),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	logging.Logger.Info("server stopped")
}

// applyEnv overlays environment overrides on cfg.
func applyEnv(cfg *keyguard.Config) {
	if p := os.Getenv("PORT"); p != "" {
		cfg.Server.Addr = ":" + p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
}

func backendName(cfg keyguard.StoreConfig) string {
	if cfg.Backend == "" {
		return string(keyguard.BackendMemory)
	}
	return string(cfg.Backend)
}

// newRouter builds the HTTP router. The admin API is mounted only when
// adminToken is non-empty.
func newRouter(m *keyguard.KeyManager, lister store.Lister, adminToken string, corsOrigins []string) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(m.Header(), corsOrigins...))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version.Short(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	if adminToken != "" {
		adminHandlers, err := admin.NewHandlers(m, lister)
		if err != nil {
			return nil, err
		}
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.AdminAuth(adminToken))
			r.Mount("/", adminHandlers.Routes())
		})
	}

	r.With(admin.RequireValidKey(m)).Get("/v1/whoami", whoami)

	return r, nil
}

// whoami echoes the record of the presented key.
func whoami(w http.ResponseWriter, r *http.Request) {
	rec, _ := admin.KeyRecordFromContext(r.Context())
	resp := map[string]interface{}{
		"issuee": rec.IssueeName(),
	}
	if rec != nil && rec.ExpiryDate != nil {
		resp["expiryDate"] = rec.ExpiryDate.UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
