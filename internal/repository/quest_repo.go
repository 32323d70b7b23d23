package repository

import (
	"context"
	"fmt"
	"time"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type QuestRepository struct {
	pool *pgxpool.Pool
}

func NewQuestRepository(pool *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{pool: pool}
}

// Get returns the wallet's quest row for day
func (r *QuestRepository) Get(ctx context.Context, wallet string, day time.Time) (*domain.DailyQuest, error) {
	var q domain.DailyQuest
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT wallet_address, quest_date, checked_in, category_created,
				votes_cast, vote_bonus_claimed, streak
		 FROM daily_quests
		 WHERE wallet_address = $1 AND quest_date = $2`,
		wallet, domain.QuestDay(day),
	).Scan(&q.WalletAddress, &q.QuestDate, &q.CheckedIn, &q.CategoryCreated,
		&q.VotesCast, &q.VoteBonusClaimed, &q.Streak)
	if err != nil {
		return nil, mapErr(err)
	}
	return &q, nil
}

// IncrementVotes bumps votes_cast and returns the new count
func (r *QuestRepository) IncrementVotes(ctx context.Context, wallet string, day time.Time) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO daily_quests (wallet_address, quest_date, votes_cast)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (wallet_address, quest_date)
		 DO UPDATE SET votes_cast = daily_quests.votes_cast + 1, updated_at = NOW()
		 RETURNING votes_cast`,
		wallet, domain.QuestDay(day),
	).Scan(&n)
	return n, mapErr(err)
}

// ClaimFlag flips a once-per-day flag from false to true. Only one caller
// per wallet and day ever sees true. The vote bonus flag additionally
// requires votes_cast to have reached the threshold.
func (r *QuestRepository) ClaimFlag(ctx context.Context, wallet string, day time.Time, flag domain.QuestFlag) (bool, error) {
	conn := db.Conn(ctx, r.pool)
	day = domain.QuestDay(day)

	switch flag {
	case domain.QuestFlagCategoryCreated:
		tag, err := conn.Exec(ctx,
			`INSERT INTO daily_quests (wallet_address, quest_date, category_created)
			 VALUES ($1, $2, TRUE)
			 ON CONFLICT (wallet_address, quest_date)
			 DO UPDATE SET category_created = TRUE, updated_at = NOW()
			 WHERE daily_quests.category_created = FALSE`,
			wallet, day,
		)
		if err != nil {
			return false, mapErr(err)
		}
		return tag.RowsAffected() == 1, nil

	case domain.QuestFlagVoteBonusClaimed:
		tag, err := conn.Exec(ctx,
			`UPDATE daily_quests SET vote_bonus_claimed = TRUE, updated_at = NOW()
			 WHERE wallet_address = $1 AND quest_date = $2
			   AND vote_bonus_claimed = FALSE AND votes_cast >= $3`,
			wallet, day, domain.VoteBonusThreshold,
		)
		if err != nil {
			return false, mapErr(err)
		}
		return tag.RowsAffected() == 1, nil
	}

	return false, fmt.Errorf("unknown quest flag %q", flag)
}

// CheckIn marks day as checked in with streak. It reports false when the
// wallet already checked in that day.
func (r *QuestRepository) CheckIn(ctx context.Context, wallet string, day time.Time, streak int) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO daily_quests (wallet_address, quest_date, checked_in, streak)
		 VALUES ($1, $2, TRUE, $3)
		 ON CONFLICT (wallet_address, quest_date)
		 DO UPDATE SET checked_in = TRUE, streak = EXCLUDED.streak, updated_at = NOW()
		 WHERE daily_quests.checked_in = FALSE`,
		wallet, domain.QuestDay(day), streak,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExcept drops every quest row not dated day
func (r *QuestRepository) DeleteExcept(ctx context.Context, day time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM daily_quests WHERE quest_date <> $1`,
		domain.QuestDay(day),
	)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
