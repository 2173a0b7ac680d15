package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkang-dev/chessio-server/internal/auth"
	appcfg "github.com/mkang-dev/chessio-server/internal/config"
	"github.com/mkang-dev/chessio-server/internal/game"
	"github.com/mkang-dev/chessio-server/internal/msgcat"
	"github.com/mkang-dev/chessio-server/internal/obslog"
	"github.com/mkang-dev/chessio-server/internal/rules"
	"github.com/mkang-dev/chessio-server/internal/store"
	"github.com/mkang-dev/chessio-server/internal/store/livecache"
	"github.com/mkang-dev/chessio-server/internal/store/postgres"
	"github.com/mkang-dev/chessio-server/internal/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	var (
		verifier  auth.Verifier
		registrar auth.Registrar
		gateway   store.Gateway
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database init error: %v", err)
		}
		defer db.Close()
		pg := auth.NewPGVerifier(db)
		verifier, registrar = pg, pg
		gateway = postgres.NewRepository(db)
	} else {
		obslog.L().Warn("no_database_configured",
			zap.String("detail", "accounts are in-memory and game records are not persisted"))
		static := auth.NewStaticVerifier()
		verifier, registrar = static, static
	}

	var live store.LiveMirror
	if cfg.RedisURL != "" {
		cache, err := livecache.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer cache.Close()
		live = cache
	}

	bootstrapAdmin(registrar, cfg)

	mgr := game.NewManager(game.Deps{
		Verifier:     verifier,
		Engine:       rules.NewEngine(),
		Gateway:      gateway,
		Live:         live,
		Catalog:      cat,
		HistoryLimit: cfg.HistoryLimit,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(mgr))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go statusLoop(mgr, time.Duration(cfg.StatusLogIntervalSec)*time.Second)

	go func() {
		obslog.L().Info("server_listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	obslog.L().Info("server_stopped")
}

// bootstrapAdmin registers the configured admin account once. Mirrors the
// idempotent startup registration the service has always done.
func bootstrapAdmin(registrar auth.Registrar, cfg *appcfg.AppConfig) {
	if registrar == nil || cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := registrar.Register(ctx, cfg.AdminUsername, cfg.AdminPassword)
	switch {
	case err == nil:
		obslog.L().Info("admin_user_created", zap.String("username", cfg.AdminUsername))
	case errors.Is(err, auth.ErrUsernameTaken):
		obslog.L().Info("admin_user_exists", zap.String("username", cfg.AdminUsername))
	default:
		obslog.L().Error("admin_user_create_failed", zap.Error(err))
	}
}

// statusLoop periodically logs headline numbers.
func statusLoop(mgr *game.Manager, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		connected, active, waiting := mgr.Stats()
		obslog.L().Info("server_status",
			zap.Int("connected_users", connected),
			zap.Int("active_games", active),
			zap.Int("waiting_users", waiting),
		)
	}
}
