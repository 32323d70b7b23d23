package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noizlabs/internal/app"
	"noizlabs/internal/config"
	"noizlabs/internal/db"
	httpServer "noizlabs/internal/http"
	"noizlabs/internal/http/handlers"
	"noizlabs/internal/logger"
	"noizlabs/internal/ratelimit"
	"noizlabs/internal/scheduler"
	"noizlabs/internal/service"
	"noizlabs/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	rdb := app.Redis(cfg)
	defer rdb.Close()

	hub := ws.NewHub()
	deps := service.NewDeps(dbPool, hub)
	sessions := service.NewSessions(cfg.JWTSecret, cfg.SessionTTL, service.NewRedisLoginTokens(rdb))

	awards := ratelimit.NewRedisSlidingWindow(rdb, ratelimit.Config{
		Limit:  cfg.AwardRateLimit,
		Window: cfg.AwardRateWindow,
		Prefix: "rl:award",
	})
	content := ratelimit.NewRedisSlidingWindow(rdb, ratelimit.Config{
		Limit:  cfg.ContentRateLimit,
		Window: cfg.ContentRateWindow,
		Prefix: "rl:content",
	})

	h := handlers.NewHandler(deps, sessions, awards, app.Blobs(context.Background(), cfg))

	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, httpServer.Routes{
		Handler:        h,
		Health:         handlers.NewHealthHandler(dbPool, rdb, version),
		Sessions:       sessions,
		Hub:            hub,
		Redis:          rdb,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		ContentLimiter: content,
		JobSecret:      cfg.JobSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	if cfg.SchedulerEnabled {
		sched, err := scheduler.New(h.Expiry, h.Checkins, scheduler.DefaultOptions())
		if err != nil {
			logger.Fatal("failed to create scheduler", "error", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				logger.Warn("scheduler shutdown", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
