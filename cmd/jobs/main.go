// Command jobs runs one batch job and exits, for cron or a platform
// scheduler.
package main

import (
	"context"
	"flag"
	"time"

	"noizlabs/internal/app"
	"noizlabs/internal/config"
	"noizlabs/internal/db"
	"noizlabs/internal/logger"
	"noizlabs/internal/scheduler"
	"noizlabs/internal/service"
)

func main() {
	job := flag.String("job", "", "expiry | reset-quests")
	timeout := flag.Duration("timeout", 5*time.Minute, "job timeout")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deps := service.NewDeps(pool, nil)

	switch *job {
	case "expiry":
		svc := service.NewExpiryService(deps, app.Blobs(ctx, cfg))
		if _, err := scheduler.RunExpiry(ctx, svc); err != nil {
			logger.Fatal("expiry job failed", "error", err)
		}
	case "reset-quests":
		n, err := scheduler.RunQuestReset(ctx, service.NewCheckinService(deps))
		if err != nil {
			logger.Fatal("quest reset failed", "error", err)
		}
		logger.Info("quest reset done", "deleted", n)
	default:
		logger.Fatal("unknown job", "job", *job)
	}
}
