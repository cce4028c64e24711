// server runs the playlog ingestion and export HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playlog/backend/internal/audit"
	auditrepo "playlog/backend/internal/audit/repository"
	"playlog/backend/internal/catalog"
	"playlog/backend/internal/config"
	"playlog/backend/internal/db"
	"playlog/backend/internal/db/migrate"
	eventrepo "playlog/backend/internal/event/repository"
	eventservice "playlog/backend/internal/event/service"
	experimentrepo "playlog/backend/internal/experiment/repository"
	experimentservice "playlog/backend/internal/experiment/service"
	"playlog/backend/internal/export"
	healthhandler "playlog/backend/internal/health/handler"
	policyengine "playlog/backend/internal/policy/engine"
	"playlog/backend/internal/protocol"
	"playlog/backend/internal/security"
	"playlog/backend/internal/server"
	"playlog/backend/internal/server/middleware"
	sessionrepo "playlog/backend/internal/session/repository"
	sessionservice "playlog/backend/internal/session/service"
	"playlog/backend/internal/telemetry"
	telemetryotel "playlog/backend/internal/telemetry/otel"
	"playlog/backend/internal/telemetry/producer"
	userrepo "playlog/backend/internal/user/repository"
	userservice "playlog/backend/internal/user/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := telemetry.NewLogger(os.Stdout, "playlog-server", cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret, err := cfg.SessionSecret()
	if err != nil {
		return err
	}
	deriver, err := security.NewSessionKeyDeriver(secret)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.ReleaseCatalog)
	if err != nil {
		return err
	}
	logger.Info("release catalog loaded", "path", cfg.ReleaseCatalog, "releases", len(cat.Releases()))

	dialect, _, err := db.ParseDSN(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if dialect == db.SQLite {
		// The embedded store has no separate deploy step.
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer store.Close()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       cfg.OTelEndpoint,
		ServiceName:    "playlog-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	emitters := telemetry.Multi{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	bus, busEnabled := producer.New(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if busEnabled {
		emitters = append(emitters, bus)
		logger.Info("request telemetry to kafka enabled", "topic", cfg.TelemetryKafkaTopic)
	}

	auditLog := audit.NewLogger(auditrepo.NewSQLRepository(store), middleware.ClientIPFrom, middleware.PathFrom, logger)
	recorder := server.RejectionRecorders{auditLog, server.TelemetryRejections{Emitter: emitters}}
	gate := protocol.NewGate(cat, deriver, recorder, cfg.MaxBodyBytes)

	users := userrepo.NewSQLRepository(store)
	sessions := sessionrepo.NewSQLRepository(store)
	events := eventrepo.NewSQLRepository(store)

	policy, err := policyengine.LoadOPAEvaluator(ctx, cfg.ExportPolicyFile)
	if err != nil {
		return fmt.Errorf("export policy: %w", err)
	}

	deps := server.Deps{
		Logger:      logger,
		Gate:        gate,
		Users:       userservice.NewService(users),
		Sessions:    sessionservice.NewService(sessions, deriver),
		Experiments: experimentservice.NewService(experimentrepo.NewSQLRepository(store), cat),
		Events:      eventservice.NewService(events),
		Health:      healthhandler.NewServer(store, policy),
		Emitter:     emitters,
	}
	if cfg.ExportEnabled() {
		pub, err := security.ParsePublicKey(cfg.ExportJWTPublicKey)
		if err != nil {
			return fmt.Errorf("export public key: %w", err)
		}
		deps.Tokens = security.NewTokenProvider(nil, pub, cfg.ExportJWTIssuer, cfg.ExportJWTAudience, cfg.ExportTokenTTL())
		deps.Exporter = export.NewEngine(users, sessions, events)
		deps.Policy = policy
	}

	srv := server.NewHTTPServer(cfg.HTTPAddr, server.NewHandler(deps))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "dialect", store.Dialect.String(), "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	// Give in-flight async telemetry emits time to finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := bus.Close(); err != nil {
		logger.Warn("kafka producer close", "error", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", "error", err)
	}
	logger.Info("http server stopped")
	return nil
}
