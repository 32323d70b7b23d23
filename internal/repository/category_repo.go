package repository

import (
	"context"
	"time"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, name, creator_wallet, created_at, expires_at`

func scanCategories(rows pgx.Rows) ([]*domain.Category, error) {
	defer rows.Close()
	var res []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatorWallet, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		res = append(res, &c)
	}
	return res, rows.Err()
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return mapErr(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO categories (name, creator_wallet, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		c.Name, c.CreatorWallet, c.CreatedAt, c.ExpiresAt,
	).Scan(&c.ID))
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CreatorWallet, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// FirstByCreator returns the oldest category the wallet still has
func (r *CategoryRepository) FirstByCreator(ctx context.Context, wallet string) (*domain.Category, error) {
	var c domain.Category
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE creator_wallet = $1
		 ORDER BY created_at, id
		 LIMIT 1`, wallet,
	).Scan(&c.ID, &c.Name, &c.CreatorWallet, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *CategoryRepository) ListActive(ctx context.Context, now time.Time, limit int) ([]*domain.Category, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE expires_at > $1
		 ORDER BY created_at DESC
		 LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanCategories(rows)
}

// ListExpired returns categories whose expiry has passed, oldest first
func (r *CategoryRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Category, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE expires_at <= $1
		 ORDER BY expires_at, id
		 LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanCategories(rows)
}

// Delete removes the category; clips and votes go with it (ON DELETE CASCADE).
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return mapErr(err)
}
