package domain

import (
	"fmt"
	"time"
)

// AwardAction is the kind of action a caller asks points for.
type AwardAction string

const (
	ActionUpload   AwardAction = "upload"
	ActionVote     AwardAction = "vote"
	ActionCategory AwardAction = "category"
	ActionReferral AwardAction = "referral"
	ActionTask     AwardAction = "task"
)

// Ledger entry kinds that are not caller-requested actions.
const (
	AwardVoteBonus      = "vote_bonus"
	AwardCategoryQuest  = "category_quest"
	AwardReferrer       = "referrer"
	AwardCheckin        = "checkin"
	AwardStreakBonus    = "streak_bonus"
	AwardCategoryWinner = "category_winner"
)

// Fixed point amounts.
const (
	PointsUpload         int64 = 5
	PointsVote           int64 = 1
	PointsVoteBonus      int64 = 5
	PointsCategory       int64 = 50
	PointsCategoryQuest  int64 = 10
	PointsReferral       int64 = 100
	PointsCheckin        int64 = 10
	PointsStreakBonus    int64 = 100
	PointsCategoryWinner int64 = 25

	VoteBonusThreshold = 20
	StreakBonusDay     = 7
)

func (a AwardAction) Valid() bool {
	switch a {
	case ActionUpload, ActionVote, ActionCategory, ActionReferral, ActionTask:
		return true
	}
	return false
}

// PointAward is one row of the append-only award ledger. The
// (WalletAddress, Action, Reference) triple is unique.
type PointAward struct {
	ID            int64     `db:"id" json:"id"`
	WalletAddress string    `db:"wallet_address" json:"wallet_address"`
	Action        string    `db:"action" json:"action"`
	Reference     string    `db:"reference" json:"reference"`
	Points        int64     `db:"points" json:"points"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func RefID(id int64) string {
	return fmt.Sprintf("%d", id)
}

func RefDay(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	Points        int64  `json:"points"`
}

// PointsEvent is pushed to a wallet's live feed after a credit commits.
type PointsEvent struct {
	WalletAddress string    `json:"wallet_address"`
	Action        string    `json:"action"`
	Points        int64     `json:"points"`
	Balance       int64     `json:"balance"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}
