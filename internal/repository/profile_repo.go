package repository

import (
	"context"
	"errors"
	"time"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, wallet_address, username, referral_code, referred_by, timezone,
	COALESCE(signup_ip, ''), checkin_streak, last_checkin_date, created_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(
		&p.ID,
		&p.WalletAddress,
		&p.Username,
		&p.ReferralCode,
		&p.ReferredBy,
		&p.Timezone,
		&p.SignupIP,
		&p.CheckinStreak,
		&p.LastCheckin,
		&p.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	return scanProfile(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (r *ProfileRepository) GetByWallet(ctx context.Context, wallet string) (*domain.Profile, error) {
	return scanProfile(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE wallet_address = $1`, wallet))
}

// GetBySignupIP returns the first profile registered from ip.
func (r *ProfileRepository) GetBySignupIP(ctx context.Context, ip string) (*domain.Profile, error) {
	return scanProfile(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE signup_ip = $1 ORDER BY id LIMIT 1`, ip))
}

// Create inserts the profile and its zero balance row. A wallet that already
// has a profile is reported as a ConflictError on ConstraintProfileWallet
// without aborting the surrounding transaction, so the caller can read the
// existing row instead.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	conn := db.Conn(ctx, r.pool)
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}

	err := conn.QueryRow(ctx,
		`INSERT INTO profiles (wallet_address, username, referral_code, referred_by, timezone, signup_ip)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		 ON CONFLICT (wallet_address) DO NOTHING
		 RETURNING id, created_at`,
		p.WalletAddress, p.Username, p.ReferralCode, p.ReferredBy, p.Timezone, p.SignupIP,
	).Scan(&p.ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &ConflictError{Constraint: ConstraintProfileWallet}
	}
	if err != nil {
		return mapErr(err)
	}

	_, err = conn.Exec(ctx,
		`INSERT INTO user_points (wallet_address, points) VALUES ($1, 0)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		p.WalletAddress,
	)
	return mapErr(err)
}

func (r *ProfileRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE profiles SET username = $1, updated_at = NOW() WHERE id = $2`,
		username, id,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveCheckin records the wallet's latest check-in day and streak.
func (r *ProfileRepository) SaveCheckin(ctx context.Context, wallet string, day time.Time, streak int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE profiles SET checkin_streak = $2, last_checkin_date = $3, updated_at = NOW()
		 WHERE wallet_address = $1`,
		wallet, streak, domain.QuestDay(day),
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
