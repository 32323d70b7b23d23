package repository

import (
	"context"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type VoteRepository struct {
	pool *pgxpool.Pool
}

func NewVoteRepository(pool *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

func (r *VoteRepository) Create(ctx context.Context, v *domain.Vote) error {
	return mapErr(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO votes (battle_id, clip_id, voter_wallet)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		v.BattleID, v.ClipID, v.VoterWallet,
	).Scan(&v.ID, &v.CreatedAt))
}

func (r *VoteRepository) GetByID(ctx context.Context, id int64) (*domain.Vote, error) {
	var v domain.Vote
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, battle_id, clip_id, voter_wallet, created_at FROM votes WHERE id = $1`, id,
	).Scan(&v.ID, &v.BattleID, &v.ClipID, &v.VoterWallet, &v.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}
