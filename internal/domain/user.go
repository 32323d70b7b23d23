package domain

import "time"

// Profile is the 1:1 record behind a wallet identity. LastCheckin is the
// UTC day of the most recent check-in.
type Profile struct {
	ID            int64      `db:"id" json:"id"`
	WalletAddress string     `db:"wallet_address" json:"wallet_address"`
	Username      string     `db:"username" json:"username"`
	ReferralCode  string     `db:"referral_code" json:"referral_code"`
	ReferredBy    *string    `db:"referred_by" json:"referred_by,omitempty"`
	Timezone      string     `db:"timezone" json:"timezone"`
	SignupIP      string     `db:"signup_ip" json:"-"`
	CheckinStreak int        `db:"checkin_streak" json:"checkin_streak"`
	LastCheckin   *time.Time `db:"last_checkin_date" json:"last_checkin,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// NextStreak is the streak a check-in on today's UTC day lands on: one more
// than the stored streak when the last check-in was yesterday, else 1.
func (p *Profile) NextStreak(today time.Time) int {
	if p.LastCheckin != nil && QuestDay(*p.LastCheckin).Equal(QuestDay(today).AddDate(0, 0, -1)) {
		return p.CheckinStreak + 1
	}
	return 1
}

// EmailAlias is the synthetic address the passwordless session is bound to.
func (p *Profile) EmailAlias() string {
	return WalletEmailAlias(p.WalletAddress)
}

func WalletEmailAlias(wallet string) string {
	return wallet + "@wallet.noizlabs.app"
}
