package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/config"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/events"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/mcp"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/server"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage/sqlite"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// backend is what both storage drivers provide.
type backend interface {
	live.Store
	live.Directory
	Ping(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	issueToken := flag.Int64("issue-token", 0, "print a signed token for this user id and exit")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of a token printed by -issue-token")
	tokenScopes := flag.String("token-scopes", "", "comma-separated scopes for -issue-token")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("liveclass starting", "version", Version, "driver", cfg.Database.Driver)

	authCfg := auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer}
	if *issueToken > 0 {
		var scopes []string
		if *tokenScopes != "" {
			scopes = strings.Split(*tokenScopes, ",")
		}
		tok, err := auth.Sign(authCfg, *issueToken, scopes, *tokenTTL)
		if err != nil {
			log.Error("failed to sign token", "error", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	ctx := context.Background()
	db, closeDB, err := openBackend(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	catalog := workout.NewCatalog(db, cfg.Cache.StepCacheBytes, log)
	catalog.OnLookup = observability.RecordStepCacheLookup

	opts := []live.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("closing event publisher", "error", err)
			}
		}()
		opts = append(opts, live.WithPublisher(pub))
		log.Info("publishing session events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	engine := live.New(db, db, catalog, log, opts...)

	// Create server
	srv := server.New(engine, auth.NewMiddleware(authCfg, cfg.Auth.APIKey, nil), cfg.Server.CORSOrigins, log)
	srv.SetHealthCheck(db.Ping)
	srv.SetMCP(mcp.NewHTTPHandler(mcp.New(engine, Version, log)))

	// Listen on the tailnet or plain TCP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openBackend connects the configured driver. Postgres migrations run
// before the pool opens; the SQLite schema is applied on open.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (backend, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite database opened", "path", cfg.Path)
		return db, func() {
			if err := db.Close(); err != nil {
				log.Warn("closing sqlite", "error", err)
			}
		}, nil
	default:
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, cfg.Migrations); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected")
		return db, db.Close, nil
	}
}
