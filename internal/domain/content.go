package domain

import "time"

// CategoryLifetime is how long a category accepts clips and votes.
const CategoryLifetime = 7 * 24 * time.Hour

type Category struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	CreatorWallet string    `db:"creator_wallet" json:"creator_wallet"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
}

func (c *Category) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type AudioClip struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	CreatorWallet string    `db:"creator_wallet" json:"creator_wallet"`
	CategoryID    int64     `db:"category_id" json:"category_id"`
	AudioURL      string    `db:"audio_url" json:"audio_url"`
	ObjectKey     string    `db:"object_key" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ClipTally is a clip with its derived vote count.
type ClipTally struct {
	AudioClip
	Votes int64 `json:"votes"`
}

type Vote struct {
	ID          int64     `db:"id" json:"id"`
	BattleID    string    `db:"battle_id" json:"battle_id"`
	ClipID      int64     `db:"clip_id" json:"clip_id"`
	VoterWallet string    `db:"voter_wallet" json:"voter_wallet"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PickWinner returns the clip with the most votes. Ties go to the earliest
// created clip, then the lowest id. ok is false when nobody got a vote.
func PickWinner(tallies []ClipTally) (winner ClipTally, ok bool) {
	for _, t := range tallies {
		if t.Votes <= 0 {
			continue
		}
		if !ok || beats(t, winner) {
			winner, ok = t, true
		}
	}
	return winner, ok
}

func beats(a, b ClipTally) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
