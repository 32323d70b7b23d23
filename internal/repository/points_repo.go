package repository

import (
	"context"
	"errors"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PointsRepository is the award ledger. Balances only move through Credit.
type PointsRepository struct {
	pool *pgxpool.Pool
}

func NewPointsRepository(pool *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{pool: pool}
}

// Credit records the award and increments the balance. When the
// (wallet, action, reference) marker already exists nothing changes and
// applied is false. Callers should run it inside a transaction.
func (r *PointsRepository) Credit(ctx context.Context, a *domain.PointAward) (bool, error) {
	conn := db.Conn(ctx, r.pool)

	err := conn.QueryRow(ctx,
		`INSERT INTO point_awards (wallet_address, action, reference, points)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (wallet_address, action, reference) DO NOTHING
		 RETURNING id, created_at`,
		a.WalletAddress, a.Action, a.Reference, a.Points,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapErr(err)
	}

	var balance int64
	if err := conn.QueryRow(ctx,
		`SELECT add_user_points_internal($1, $2)`,
		a.WalletAddress, a.Points,
	).Scan(&balance); err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (r *PointsRepository) Balance(ctx context.Context, wallet string) (int64, error) {
	var points int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE((SELECT points FROM user_points WHERE wallet_address = $1), 0)`,
		wallet,
	).Scan(&points)
	return points, mapErr(err)
}

// History returns the latest award events for wallet
func (r *PointsRepository) History(ctx context.Context, wallet string, limit int) ([]*domain.PointAward, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, wallet_address, action, reference, points, created_at
		 FROM point_awards
		 WHERE wallet_address = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var res []*domain.PointAward
	for rows.Next() {
		var a domain.PointAward
		if err := rows.Scan(&a.ID, &a.WalletAddress, &a.Action, &a.Reference, &a.Points, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &a)
	}
	return res, rows.Err()
}

func (r *PointsRepository) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT up.wallet_address, p.username, up.points
		 FROM user_points up
		 JOIN profiles p ON p.wallet_address = up.wallet_address
		 WHERE up.points > 0
		 ORDER BY up.points DESC, up.updated_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var res []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.WalletAddress, &e.Username, &e.Points); err != nil {
			return nil, err
		}
		e.Rank = len(res) + 1
		res = append(res, e)
	}
	return res, rows.Err()
}
