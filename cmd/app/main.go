package main

import (
	"availability-service/internal/config"
	blockedGet "availability-service/internal/http-server/handlers/availability/blocked_times/get"
	blockedUpdate "availability-service/internal/http-server/handlers/availability/blocked_times/update"
	scheduleGet "availability-service/internal/http-server/handlers/availability/schedule/get"
	scheduleUpdate "availability-service/internal/http-server/handlers/availability/schedule/update"
	settingsGet "availability-service/internal/http-server/handlers/availability/settings/get"
	settingsUpdate "availability-service/internal/http-server/handlers/availability/settings/update"
	specialGet "availability-service/internal/http-server/handlers/availability/special_days/get"
	specialUpdate "availability-service/internal/http-server/handlers/availability/special_days/update"
	apptConflicts "availability-service/internal/http-server/handlers/appointments/conflicts"
	apptCreate "availability-service/internal/http-server/handlers/appointments/create"
	apptDelete "availability-service/internal/http-server/handlers/appointments/delete"
	apptGet "availability-service/internal/http-server/handlers/appointments/get"
	apptSlots "availability-service/internal/http-server/handlers/appointments/slots"
	apptUpdate "availability-service/internal/http-server/handlers/appointments/update"
	"availability-service/internal/lock"
	svc "availability-service/internal/service"
	"availability-service/internal/storage/postgres"
	slogpretty "availability-service/pkg/handlers/slogPretty"
	"availability-service/pkg/middleware/mwLogger"
	"availability-service/pkg/sl"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	service := svc.NewService(storage, locker)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Availability configuration
	router.Get("/api/availability/schedule", scheduleGet.New(log, service))
	router.Put("/api/availability/schedule", scheduleUpdate.New(log, service))
	router.Get("/api/availability/settings", settingsGet.New(log, service))
	router.Put("/api/availability/settings", settingsUpdate.New(log, service))
	router.Get("/api/availability/special-days", specialGet.New(log, service))
	router.Put("/api/availability/special-days", specialUpdate.New(log, service))
	router.Get("/api/availability/blocked-times", blockedGet.New(log, service))
	router.Put("/api/availability/blocked-times", blockedUpdate.New(log, service))

	// Appointments
	router.Post("/api/appointments/available-slots", apptSlots.New(log, service))
	router.Post("/api/appointments/check-conflicts", apptConflicts.New(log, service))
	router.Post("/api/appointments", apptCreate.New(log, service))
	router.Get("/api/appointments", apptGet.New(log, service))
	router.Get("/api/appointments/{id}", apptGet.New(log, service))
	router.Put("/api/appointments/{id}", apptUpdate.New(log, service))
	router.Delete("/api/appointments/{id}", apptDelete.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if storage != nil {
		if err := storage.Close(); err != nil {
			log.Error("Failed to close storage", sl.Err(err))
		} else {
			log.Info("Storage closed")
		}
	} else {
		log.Debug("Storage is nil, nothing to close")
	}

	if locker != nil {
		if err := locker.Close(); err != nil {
			log.Error("Failed to close locker", sl.Err(err))
		} else {
			log.Info("Locker closed")
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
