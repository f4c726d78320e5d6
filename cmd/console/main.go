package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"moul.io/chizap"

	"taskconsole/internal/access"
	"taskconsole/internal/auth"
	"taskconsole/internal/backend"
	"taskconsole/internal/config"
	"taskconsole/internal/gate"
	"taskconsole/internal/prefs"
	"taskconsole/internal/session"
	"taskconsole/internal/storage"
	"taskconsole/internal/task"
	"taskconsole/internal/token"
	"taskconsole/internal/user"
)

func main() {
	// init logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := openStorage(cfg.StorageConfig, logger)
	if err != nil {
		logger.Fatal("failed to open session storage", zap.Error(err))
	}

	codec := token.NewCodec(logger)
	sess := session.NewStore(store, codec, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := session.NewWatcher(sess, store, cfg.SessionConfig.WatchInterval, logger)
	watcher.Start(ctx)
	defer watcher.Stop()

	client := backend.NewClient(cfg.BackendConfig, logger)
	resolver := access.NewResolver(client, logger)
	guard := gate.New(sess, resolver, store, cfg.SessionConfig.ApplicationID, logger)

	authHandler := auth.NewHandler(client, sess, cfg.SessionConfig.ApplicationID, logger)
	menuHandler := access.NewHandler(client, sess, cfg.SessionConfig.ApplicationID, logger)
	userHandler := user.NewHandler(client, logger)
	taskHandler := task.NewHandler(client, logger)
	prefsHandler := prefs.NewHandler(store, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(chizap.New(logger, &chizap.Opts{WithReferer: false, WithUserAgent: false}))
	r.Use(middleware.Recoverer)

	r.Mount("/authentication", authHandler.Routes())
	r.Get("/api/session", authHandler.Session)
	r.Post("/api/session/focus", func(w http.ResponseWriter, _ *http.Request) {
		watcher.Focus()
		w.WriteHeader(http.StatusAccepted)
	})
	r.Route("/api/menus", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Mount("/", menuHandler.Routes())
	})
	r.Route("/api/preferences", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Mount("/", prefsHandler.Routes())
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Use(guard.RequireAccess("users/list"))
		r.Mount("/", userHandler.Routes())
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Use(guard.RequireAccess("tasks/list"))
		r.Mount("/", taskHandler.Routes())
	})
	r.With(guard.RequireAuth, guard.RequireAccess("dashboard/list")).
		Get("/dashboard/metrics", taskHandler.Metrics)

	srv := &http.Server{
		Addr:         ":" + cfg.AppConfig.Port,
		Handler:      r,
		ReadTimeout:  cfg.AppConfig.ReadTimeout,
		WriteTimeout: cfg.AppConfig.WriteTimeout,
		IdleTimeout:  cfg.AppConfig.IdleTimeout,
	}

	go func() {
		logger.Info("console listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStorage(cfg *config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return storage.NewRedisStore(client, "taskconsole", logger), nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewFileStore(cfg.FilePath, logger)
	}
}
