// Package memstore is an in-memory implementation of the service stores,
// used by service and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/service"
)

type questKey struct {
	wallet string
	day    time.Time
}

type awardKey struct {
	wallet, action, ref string
}

type state struct {
	seq        int64
	profiles   map[int64]domain.Profile
	points     map[string]int64
	awards     map[awardKey]domain.PointAward
	categories map[int64]domain.Category
	clips      map[int64]domain.AudioClip
	votes      map[int64]domain.Vote
	quests     map[questKey]domain.DailyQuest
	tasks      map[int64]domain.Task
	userTasks  map[int64]domain.UserTask
	audit      []domain.AuditLog
}

func newState() *state {
	return &state{
		profiles:   map[int64]domain.Profile{},
		points:     map[string]int64{},
		awards:     map[awardKey]domain.PointAward{},
		categories: map[int64]domain.Category{},
		clips:      map[int64]domain.AudioClip{},
		votes:      map[int64]domain.Vote{},
		quests:     map[questKey]domain.DailyQuest{},
		tasks:      map[int64]domain.Task{},
		userTasks:  map[int64]domain.UserTask{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *state) clone() *state {
	return &state{
		seq:        st.seq,
		profiles:   copyMap(st.profiles),
		points:     copyMap(st.points),
		awards:     copyMap(st.awards),
		categories: copyMap(st.categories),
		clips:      copyMap(st.clips),
		votes:      copyMap(st.votes),
		quests:     copyMap(st.quests),
		tasks:      copyMap(st.tasks),
		userTasks:  copyMap(st.userTasks),
		audit:      append([]domain.AuditLog(nil), st.audit...),
	}
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

// Store holds every table. Transactions are serialised and roll back by
// restoring a snapshot.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time

	// FailCategoryDelete makes Categories.Delete fail for the given ids.
	FailCategoryDelete map[int64]error

	// BeforeProfileCreate runs at the start of Profiles.Create, outside the
	// store lock.
	BeforeProfileCreate func(p *domain.Profile)
}

func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{st: newState(), now: now, FailCategoryDelete: map[int64]error{}}
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Deps returns service dependencies backed by this store.
func (s *Store) Deps() service.Deps {
	return service.Deps{
		Tx:         s,
		Profiles:   &Profiles{s},
		Referrals:  &Referrals{s},
		Ledger:     &Ledger{s},
		Quests:     &Quests{s},
		Categories: &Categories{s},
		Clips:      &Clips{s},
		Votes:      &Votes{s},
		Tasks:      &Tasks{s},
		Audit:      &Audit{s},
		Now:        s.now,
	}
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// AddTask seeds the task catalog.
func (s *Store) AddTask(t domain.Task) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.st.nextID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.stamp()
	}
	s.st.tasks[t.ID] = t
	return &t
}

// SetQuest overwrites a quest row.
func (s *Store) SetQuest(q domain.DailyQuest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.QuestDate = domain.QuestDay(q.QuestDate)
	s.st.quests[questKey{q.WalletAddress, q.QuestDate}] = q
}

// SetCheckin overwrites the wallet's last check-in day and streak.
func (s *Store) SetCheckin(wallet string, day time.Time, streak int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.QuestDay(day)
	for id, p := range s.st.profiles {
		if p.WalletAddress == wallet {
			p.CheckinStreak = streak
			p.LastCheckin = &d
			s.st.profiles[id] = p
		}
	}
}

// Awards returns every ledger entry for wallet, oldest first.
func (s *Store) Awards(wallet string) []domain.PointAward {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PointAward
	for _, a := range s.st.awards {
		if a.WalletAddress == wallet {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AuditEntries returns the audit trail in insertion order.
func (s *Store) AuditEntries() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLog(nil), s.st.audit...)
}

// ProfileCount returns how many profiles exist.
func (s *Store) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.profiles)
}

// QuestDays returns the dates of the wallet's quest rows.
func (s *Store) QuestDays(wallet string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for k := range s.st.quests {
		if k.wallet == wallet {
			out = append(out, k.day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
