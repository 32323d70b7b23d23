package domain

import "time"

type TaskKind string

const (
	TaskKindSocial   TaskKind = "social"
	TaskKindReferral TaskKind = "referral"
)

type Task struct {
	ID          int64     `db:"id" json:"id"`
	Kind        TaskKind  `db:"kind" json:"kind"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Link        string    `db:"link" json:"link,omitempty"`
	Reward      int64     `db:"reward" json:"reward"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type UserTask struct {
	ID            int64     `db:"id" json:"id"`
	WalletAddress string    `db:"wallet_address" json:"wallet_address"`
	TaskID        int64     `db:"task_id" json:"task_id"`
	Verified      bool      `db:"verified" json:"verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
