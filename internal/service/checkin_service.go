package service

import (
	"context"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
)

type CheckinResult struct {
	Streak           int   `json:"streak"`
	Points           int64 `json:"points"`
	IsStreakComplete bool  `json:"isStreakComplete"`
}

// CheckinService runs the daily check-in and streak.
type CheckinService struct {
	Deps
	balance *BalanceService
}

func NewCheckinService(d Deps) *CheckinService {
	return &CheckinService{Deps: d, balance: NewBalanceService(d)}
}

// CheckIn marks today (UTC) as checked in. The streak continues from the
// profile's last check-in when that was yesterday, otherwise it restarts at 1.
// The streak bonus is paid on the day the streak reaches exactly seven.
func (s *CheckinService) CheckIn(ctx context.Context, userID int64) (*CheckinResult, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := domain.QuestDay(s.now())

	var (
		res    CheckinResult
		awards []*domain.PointAward
	)
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		awards = nil

		cur, err := s.Profiles.GetByWallet(ctx, p.WalletAddress)
		if err != nil {
			return err
		}
		res = CheckinResult{Streak: cur.NextStreak(today)}

		ok, err := s.Quests.CheckIn(ctx, p.WalletAddress, today, res.Streak)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCheckedIn
		}
		if err := s.Profiles.SaveCheckin(ctx, p.WalletAddress, today, res.Streak); err != nil {
			return err
		}

		a, applied, err := s.balance.Credit(ctx, p.ID, p.WalletAddress, domain.AwardCheckin, domain.RefDay(today), domain.PointsCheckin)
		if err != nil {
			return err
		}
		if !applied {
			return ErrAlreadyCheckedIn
		}
		awards = append(awards, a)
		res.Points = a.Points

		if res.Streak == domain.StreakBonusDay {
			b, applied, err := s.balance.Credit(ctx, p.ID, p.WalletAddress, domain.AwardStreakBonus, domain.RefDay(today), domain.PointsStreakBonus)
			if err != nil {
				return err
			}
			if applied {
				awards = append(awards, b)
				res.Points += b.Points
				res.IsStreakComplete = true
			}
		}

		s.balance.audit.Log(ctx, p.ID, domain.AuditActionCheckin, domain.AuditCategoryPoints, map[string]interface{}{
			"streak": res.Streak,
			"points": res.Points,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.balance.Publish(ctx, "Daily check-in", awards...)
	logger.WithContext(ctx).Info("daily check-in", "wallet", p.WalletAddress, "streak", res.Streak, "points", res.Points)
	return &res, nil
}

// Today returns the wallet's quest row for the current UTC day, empty
// when nothing happened yet.
func (s *CheckinService) Today(ctx context.Context, wallet string) (*domain.DailyQuest, error) {
	today := domain.QuestDay(s.now())
	q, err := s.Quests.Get(ctx, wallet, today)
	if err != nil {
		if isNotFound(err) {
			return &domain.DailyQuest{WalletAddress: wallet, QuestDate: today}, nil
		}
		return nil, err
	}
	return q, nil
}

// ResetDailyQuests deletes every quest row that is not dated today (UTC).
func (s *CheckinService) ResetDailyQuests(ctx context.Context) (int64, error) {
	today := domain.QuestDay(s.now())
	n, err := s.Quests.DeleteExcept(ctx, today)
	if err != nil {
		return 0, err
	}
	s.balance.audit.Log(ctx, 0, domain.AuditActionQuestReset, domain.AuditCategoryJobs, map[string]interface{}{
		"deleted": n,
		"kept":    domain.RefDay(today),
	})
	logger.WithContext(ctx).Info("daily quests reset", "deleted", n, "kept", domain.RefDay(today))
	return n, nil
}
