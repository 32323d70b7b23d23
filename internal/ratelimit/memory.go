package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local sliding log. It is only exact for a single
// instance; production wiring uses RedisSlidingWindow.
type Memory struct {
	cfg Config
	now func() time.Time

	mu  sync.Mutex
	log map[string][]time.Time
}

func NewMemory(cfg Config, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{cfg: cfg, now: now, log: make(map[string][]time.Time)}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()
	cutoff := now.Add(-m.cfg.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	calls := m.log[key]
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	calls = calls[i:]

	if len(calls) >= m.cfg.Limit {
		m.log[key] = calls
		return Result{
			Allowed:    false,
			Limit:      m.cfg.Limit,
			Remaining:  0,
			RetryAfter: calls[0].Add(m.cfg.Window).Sub(now),
		}, nil
	}

	calls = append(calls, now)
	m.log[key] = calls
	return Result{
		Allowed:   true,
		Limit:     m.cfg.Limit,
		Remaining: remaining(m.cfg.Limit, len(calls)),
	}, nil
}
