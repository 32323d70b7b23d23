package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed lua/sliding_window.lua
var luaSlidingWindow string

// RedisSlidingWindow keeps a sorted-set log per key in Redis, so every
// instance of the service sees the same window.
type RedisSlidingWindow struct {
	rdb    redis.UniversalClient
	cfg    Config
	script *redis.Script
	now    func() time.Time
}

func NewRedisSlidingWindow(rdb redis.UniversalClient, cfg Config) *RedisSlidingWindow {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl:sw"
	}
	return &RedisSlidingWindow{
		rdb:    rdb,
		cfg:    cfg,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
	}
}

func (l *RedisSlidingWindow) key(k string) string {
	return fmt.Sprintf("%s:{%s}", l.cfg.Prefix, k)
}

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UnixMilli()
	windowMs := l.cfg.Window.Milliseconds()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	raw, err := l.script.Run(ctx, l.rdb,
		[]string{l.key(key)},
		now, windowMs, l.cfg.Limit, member,
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("sliding window script: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("sliding window script: unexpected reply %v", raw)
	}

	allowed, _ := raw[0].(int64)
	count, _ := raw[1].(int64)
	oldest, _ := raw[2].(int64)

	res := Result{
		Allowed:   allowed == 1,
		Limit:     l.cfg.Limit,
		Remaining: remaining(l.cfg.Limit, int(count)),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration(oldest+windowMs-now) * time.Millisecond
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res, nil
}
