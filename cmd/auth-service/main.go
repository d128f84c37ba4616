package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mkazantseva/go-social-backend/internal/authservice/cache"
	"github.com/mkazantseva/go-social-backend/internal/authservice/config"
	"github.com/mkazantseva/go-social-backend/internal/authservice/service"
	"github.com/mkazantseva/go-social-backend/internal/authservice/storage/postgres"
	transport "github.com/mkazantseva/go-social-backend/internal/authservice/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	shutdownTimeout = 10 * time.Second
	connectTimeout  = 10 * time.Second

	// Период janitor-горутины, вычищающей истекшие записи
	// из списка отозванных токенов.
	janitorInterval = 30 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	lg := setupLogger(cfg.Env)
	lg.Info("starting identity-service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище.
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	st, err := postgres.New(connectCtx, cfg.DB.DatabaseURL)
	if err != nil {
		lg.Error("failed to init storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	svc := service.New(st, cfg.Auth)

	// Кэш отозванных токенов — опциональный ускоритель.
	if cfg.Redis.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.RedisURL, "")
		if err != nil {
			lg.Error("failed to init revocation cache", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = rc.Close() }()

		svc.SetRevocationCache(rc)
		lg.Info("revocation cache enabled")
	}

	// Janitor: записи в списке отозванных нужны только до exp токена.
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := st.DeleteExpiredRemovedTokens(ctx, time.Now().UTC()); err != nil {
					lg.Warn("removed tokens cleanup failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// Публичный HTTP.
	srv := transport.NewServer(svc, cfg.Auth, cfg.Cookie)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           transport.NewRouter(srv, lg, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Ops HTTP: health-чеки и метрики отдельно от публичного порта.
	var ready atomic.Bool
	opsServer := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux(&ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		lg.Info("ops server listening", slog.String("addr", cfg.Ops.Addr()))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lg.Info("http server listening", slog.String("addr", cfg.HTTP.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ready.Store(true)

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		lg.Error("server failed", slog.String("error", err.Error()))
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Error("http server shutdown failed", slog.String("error", err.Error()))
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		lg.Error("ops server shutdown failed", slog.String("error", err.Error()))
	}

	lg.Info("identity-service stopped")
}

// opsMux собирает служебные маршруты: liveness, readiness и метрики.
func opsMux(ready *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// setupLogger настраивает slog под окружение: локально — текст с Debug,
// в dev — JSON с Debug, в prod — JSON с Info.
func setupLogger(env string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case envLocal:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envDev:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(handler)
}
