package scheduler

import (
	"context"
	"fmt"
	"time"

	"noizlabs/internal/logger"
	"noizlabs/internal/service"

	"github.com/go-co-op/gocron/v2"
)

const jobTimeout = 2 * time.Minute

type Sweeper interface {
	ProcessExpired(ctx context.Context) (*service.ExpiryReport, error)
}

type QuestResetter interface {
	ResetDailyQuests(ctx context.Context) (int64, error)
}

type Options struct {
	ExpiryEvery time.Duration
	// UTC wall clock time of the nightly quest reset
	ResetHour, ResetMinute uint
}

func DefaultOptions() Options {
	return Options{ExpiryEvery: 5 * time.Minute, ResetHour: 0, ResetMinute: 5}
}

// Scheduler runs the expiry sweep and the quest reset in process.
type Scheduler struct {
	sched gocron.Scheduler
}

func New(sweeper Sweeper, resetter QuestResetter, opts Options) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	// Every few minutes: pay and remove expired categories
	_, err = sched.NewJob(
		gocron.DurationJob(opts.ExpiryEvery),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_, _ = RunExpiry(ctx, sweeper)
		}),
		gocron.WithName("process-category-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("expiry job: %w", err)
	}

	// Nightly: drop quest rows older than yesterday
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(opts.ResetHour, opts.ResetMinute, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_, _ = RunQuestReset(ctx, resetter)
		}),
		gocron.WithName("reset-daily-quests"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("quest reset job: %w", err)
	}

	return &Scheduler{sched: sched}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	logger.Info("scheduler started", "jobs", len(s.sched.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// RunExpiry runs one sweep and logs its report.
func RunExpiry(ctx context.Context, sweeper Sweeper) (*service.ExpiryReport, error) {
	start := time.Now()
	report, err := sweeper.ProcessExpired(ctx)
	if err != nil {
		logger.Error("[Scheduler] expiry sweep failed", "error", err)
		return nil, err
	}
	logger.Info("[Scheduler] expiry sweep done",
		"processed", report.Processed,
		"awarded", report.Awarded,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func RunQuestReset(ctx context.Context, resetter QuestResetter) (int64, error) {
	n, err := resetter.ResetDailyQuests(ctx)
	if err != nil {
		logger.Error("[Scheduler] quest reset failed", "error", err)
		return 0, err
	}
	return n, nil
}
