package domain

import "time"

// QuestFlag is a once-per-day boolean on the daily quest row.
type QuestFlag string

const (
	QuestFlagCategoryCreated  QuestFlag = "category_created"
	QuestFlagVoteBonusClaimed QuestFlag = "vote_bonus_claimed"
)

// DailyQuest - one row per wallet per UTC day
type DailyQuest struct {
	WalletAddress    string    `db:"wallet_address" json:"wallet_address"`
	QuestDate        time.Time `db:"quest_date" json:"quest_date"`
	CheckedIn        bool      `db:"checked_in" json:"checked_in"`
	CategoryCreated  bool      `db:"category_created" json:"category_created"`
	VotesCast        int       `db:"votes_cast" json:"votes_cast"`
	VoteBonusClaimed bool      `db:"vote_bonus_claimed" json:"vote_bonus_claimed"`
	Streak           int       `db:"streak" json:"streak"`
}

// Flag reports the current value of a once-per-day flag.
func (q *DailyQuest) Flag(f QuestFlag) bool {
	switch f {
	case QuestFlagCategoryCreated:
		return q.CategoryCreated
	case QuestFlagVoteBonusClaimed:
		return q.VoteBonusClaimed
	}
	return false
}

// SetFlag sets a once-per-day flag to true.
func (q *DailyQuest) SetFlag(f QuestFlag) {
	switch f {
	case QuestFlagCategoryCreated:
		q.CategoryCreated = true
	case QuestFlagVoteBonusClaimed:
		q.VoteBonusClaimed = true
	}
}

// QuestDay truncates t to its UTC calendar day.
func QuestDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
