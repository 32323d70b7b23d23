package repository

import (
	"context"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ClipRepository struct {
	pool *pgxpool.Pool
}

func NewClipRepository(pool *pgxpool.Pool) *ClipRepository {
	return &ClipRepository{pool: pool}
}

func (r *ClipRepository) Create(ctx context.Context, c *domain.AudioClip) error {
	return mapErr(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO audio_clips (title, creator_wallet, category_id, audio_url, object_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.Title, c.CreatorWallet, c.CategoryID, c.AudioURL, c.ObjectKey,
	).Scan(&c.ID, &c.CreatedAt))
}

func (r *ClipRepository) GetByID(ctx context.Context, id int64) (*domain.AudioClip, error) {
	var c domain.AudioClip
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, title, creator_wallet, category_id, audio_url, object_key, created_at
		 FROM audio_clips WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.CreatorWallet, &c.CategoryID, &c.AudioURL, &c.ObjectKey, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ExistsForCreator reports whether wallet already has a clip in category
func (r *ClipRepository) ExistsForCreator(ctx context.Context, wallet string, categoryID int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audio_clips WHERE creator_wallet = $1 AND category_id = $2)`,
		wallet, categoryID,
	).Scan(&exists)
	return exists, mapErr(err)
}

// Tally returns every clip of a category with its vote count
func (r *ClipRepository) Tally(ctx context.Context, categoryID int64) ([]domain.ClipTally, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT c.id, c.title, c.creator_wallet, c.category_id, c.audio_url, c.object_key, c.created_at,
				COUNT(v.id) AS votes
		 FROM audio_clips c
		 LEFT JOIN votes v ON v.clip_id = c.id
		 WHERE c.category_id = $1
		 GROUP BY c.id
		 ORDER BY votes DESC, c.created_at, c.id`,
		categoryID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var res []domain.ClipTally
	for rows.Next() {
		var t domain.ClipTally
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatorWallet, &t.CategoryID, &t.AudioURL,
			&t.ObjectKey, &t.CreatedAt, &t.Votes); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// VoteCount uses the get_clip_votes aggregate
func (r *ClipRepository) VoteCount(ctx context.Context, clipID int64) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT get_clip_votes($1)`, clipID).Scan(&n)
	return n, mapErr(err)
}
