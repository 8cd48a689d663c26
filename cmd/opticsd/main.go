// Command opticsd is the optics orchestrator: it loads the global
// configuration, wires the keyword registry, backend factory registry,
// session manager, scheduler, optional audit store and cleanup service,
// and serves the HTTP/SSE API (spec §6.2).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/optics-run/optics/pkg/api"
	"github.com/optics-run/optics/pkg/auditstore"
	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/cleanup"
	"github.com/optics-run/optics/pkg/config"
	"github.com/optics-run/optics/pkg/keywords"
	"github.com/optics-run/optics/pkg/scheduler"
	"github.com/optics-run/optics/pkg/session"
	"github.com/optics-run/optics/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", filepath.Join(os.Getenv("HOME"), ".optics")),
		"path to the optics configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting "+version.AppName, "version", version.Full(), "config_dir", *configDir)

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	var auditClient *auditstore.Client
	if cfg.Audit != nil && cfg.Audit.Enabled {
		auditClient, err = connectAuditStore(ctx)
		if err != nil {
			slog.Error("failed to connect audit store", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := auditClient.Close(); err != nil {
				slog.Error("error closing audit store client", "error", err)
			}
		}()
	}

	kwRegistry := keywords.NewRegistry()
	factories := backend.NewFactoryRegistry()
	manager := session.NewManager()
	sched := scheduler.New(kwRegistry)

	pool := scheduler.NewPool(sched, scheduler.DefaultPoolConfig())
	pool.Start(ctx)
	defer pool.Stop()

	if auditClient != nil {
		auditStore := auditstore.NewStore(auditClient)
		retention := cfg.Retention
		if retention == nil {
			retention = config.DefaultRetentionConfig()
		}
		cleanupSvc := cleanup.NewService(retention, auditStore, cfg.Defaults.OutputDir)
		cleanupSvc.Start(ctx)
		defer cleanupSvc.Stop()
	}

	server := api.NewServer(cfg, manager, sched, kwRegistry, factories, auditClient, cfg.Defaults.OutputDir)

	addr := apiAddr(cfg)
	slog.Info("HTTP server listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("HTTP server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during HTTP server shutdown", "error", err)
	}
}

// apiAddr resolves the listen address from GlobalConfig.API, which
// Initialize always populates with "127.0.0.1:8765" when the config
// file omits an api section.
func apiAddr(cfg *config.GlobalConfig) string {
	host, port := "127.0.0.1", 8765
	if cfg.API != nil {
		if cfg.API.Host != "" {
			host = cfg.API.Host
		}
		if cfg.API.Port != 0 {
			port = cfg.API.Port
		}
	}
	return host + ":" + strconv.Itoa(port)
}

// connectAuditStore loads AUDIT_DB_* environment configuration, opens
// the connection, and applies pending migrations before the server
// starts accepting traffic.
func connectAuditStore(ctx context.Context) (*auditstore.Client, error) {
	dbCfg, err := auditstore.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	client, err := auditstore.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	if err := auditstore.Migrate(ctx, client.DB(), dbCfg.Database); err != nil {
		_ = client.Close()
		return nil, err
	}

	slog.Info("connected to audit store", "database", dbCfg.Database)
	return client, nil
}
