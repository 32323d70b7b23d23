package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"noizlabs/internal/db"
	"noizlabs/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReferralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

// GenerateReferralCode generates a referral code; uniqueness is enforced
// by the profiles table.
func GenerateReferralCode() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}

// GetByCode finds the profile owning a referral code
func (r *ReferralRepository) GetByCode(ctx context.Context, code string) (*domain.Profile, error) {
	return scanProfile(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE referral_code = $1`,
		strings.ToUpper(strings.TrimSpace(code)),
	))
}

// LinkReferrer sets referred_by once. It reports false when the wallet
// already had a referrer.
func (r *ReferralRepository) LinkReferrer(ctx context.Context, wallet, referrer string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE profiles SET referred_by = $1, updated_at = NOW()
		 WHERE wallet_address = $2 AND referred_by IS NULL AND wallet_address <> $1`,
		referrer, wallet,
	)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountReferrals returns how many wallets name wallet as their referrer
func (r *ReferralRepository) CountReferrals(ctx context.Context, wallet string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM profiles WHERE referred_by = $1`,
		wallet,
	).Scan(&n)
	return n, mapErr(err)
}
