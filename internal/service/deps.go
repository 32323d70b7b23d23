package service

import (
	"context"
	"time"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"
	"noizlabs/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
	GetByWallet(ctx context.Context, wallet string) (*domain.Profile, error)
	GetBySignupIP(ctx context.Context, ip string) (*domain.Profile, error)
	Create(ctx context.Context, p *domain.Profile) error
	UpdateUsername(ctx context.Context, id int64, username string) error
	SaveCheckin(ctx context.Context, wallet string, day time.Time, streak int) error
}

type ReferralStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Profile, error)
	LinkReferrer(ctx context.Context, wallet, referrer string) (bool, error)
	CountReferrals(ctx context.Context, wallet string) (int, error)
}

// Ledger is the only way balances change.
type Ledger interface {
	Credit(ctx context.Context, a *domain.PointAward) (bool, error)
	Balance(ctx context.Context, wallet string) (int64, error)
	History(ctx context.Context, wallet string, limit int) ([]*domain.PointAward, error)
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type QuestStore interface {
	Get(ctx context.Context, wallet string, day time.Time) (*domain.DailyQuest, error)
	IncrementVotes(ctx context.Context, wallet string, day time.Time) (int, error)
	ClaimFlag(ctx context.Context, wallet string, day time.Time, flag domain.QuestFlag) (bool, error)
	CheckIn(ctx context.Context, wallet string, day time.Time, streak int) (bool, error)
	DeleteExcept(ctx context.Context, day time.Time) (int64, error)
}

type CategoryStore interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	FirstByCreator(ctx context.Context, wallet string) (*domain.Category, error)
	ListActive(ctx context.Context, now time.Time, limit int) ([]*domain.Category, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type ClipStore interface {
	Create(ctx context.Context, c *domain.AudioClip) error
	GetByID(ctx context.Context, id int64) (*domain.AudioClip, error)
	ExistsForCreator(ctx context.Context, wallet string, categoryID int64) (bool, error)
	Tally(ctx context.Context, categoryID int64) ([]domain.ClipTally, error)
	VoteCount(ctx context.Context, clipID int64) (int64, error)
}

type VoteStore interface {
	Create(ctx context.Context, v *domain.Vote) error
	GetByID(ctx context.Context, id int64) (*domain.Vote, error)
}

type TaskStore interface {
	ListActive(ctx context.Context) ([]*domain.Task, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	CreateUserTask(ctx context.Context, ut *domain.UserTask) error
	GetUserTask(ctx context.Context, wallet string, taskID int64) (*domain.UserTask, error)
	ListUserTasks(ctx context.Context, wallet string) ([]*domain.UserTask, error)
}

type AuditStore interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// Transactor runs fn in one transaction; stores called with the ctx it
// receives take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier receives committed credits.
type Notifier interface {
	PointsAwarded(ev domain.PointsEvent)
}

// Deps is what every service is built from.
type Deps struct {
	Tx         Transactor
	Profiles   ProfileStore
	Referrals  ReferralStore
	Ledger     Ledger
	Quests     QuestStore
	Categories CategoryStore
	Clips      ClipStore
	Votes      VoteStore
	Tasks      TaskStore
	Audit      AuditStore
	Notifier   Notifier
	Now        func() time.Time
}

// NewDeps wires the Postgres repositories.
func NewDeps(pool *pgxpool.Pool, notifier Notifier) Deps {
	return Deps{
		Tx:         db.NewTransactor(pool),
		Profiles:   repository.NewProfileRepository(pool),
		Referrals:  repository.NewReferralRepository(pool),
		Ledger:     repository.NewPointsRepository(pool),
		Quests:     repository.NewQuestRepository(pool),
		Categories: repository.NewCategoryRepository(pool),
		Clips:      repository.NewClipRepository(pool),
		Votes:      repository.NewVoteRepository(pool),
		Tasks:      repository.NewTaskRepository(pool),
		Audit:      repository.NewAuditRepository(pool),
		Notifier:   notifier,
		Now:        time.Now,
	}
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d Deps) notify(ev domain.PointsEvent) {
	if d.Notifier != nil {
		d.Notifier.PointsAwarded(ev)
	}
}

// profile resolves the session user; an unknown id is unauthorized.
func (d Deps) profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := d.Profiles.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return p, nil
}
