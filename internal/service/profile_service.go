package service

import (
	"context"
	"strings"

	"noizlabs/internal/domain"
)

const (
	historyLimit     = 20
	leaderboardLimit = 100
)

// MeView is the caller's own dashboard.
type MeView struct {
	Profile   *domain.Profile      `json:"profile"`
	Points    int64                `json:"points"`
	Quest     *domain.DailyQuest   `json:"quest"`
	Referrals int                  `json:"referrals"`
	History   []*domain.PointAward `json:"history"`
}

type ReferralInfo struct {
	Code      string `json:"code"`
	Referrals int    `json:"referrals"`
}

// ProfileService covers profile reads, username edits, referral links and
// the leaderboard.
type ProfileService struct {
	Deps
	checkins *CheckinService
	audit    *AuditService
}

func NewProfileService(d Deps) *ProfileService {
	return &ProfileService{Deps: d, checkins: NewCheckinService(d), audit: NewAuditService(d.Audit)}
}

// Profile returns the session profile
func (s *ProfileService) Profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return s.profile(ctx, userID)
}

// WalletOf resolves the wallet behind a session.
func (s *ProfileService) WalletOf(ctx context.Context, userID int64) (string, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.WalletAddress, nil
}

func (s *ProfileService) Me(ctx context.Context, userID int64) (*MeView, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &MeView{Profile: p}
	if view.Points, err = s.Ledger.Balance(ctx, p.WalletAddress); err != nil {
		return nil, err
	}
	if view.Quest, err = s.checkins.Today(ctx, p.WalletAddress); err != nil {
		return nil, err
	}
	if view.Referrals, err = s.Referrals.CountReferrals(ctx, p.WalletAddress); err != nil {
		return nil, err
	}
	if view.History, err = s.Ledger.History(ctx, p.WalletAddress, historyLimit); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *ProfileService) UpdateUsername(ctx context.Context, userID int64, username string) (*domain.Profile, error) {
	username = strings.TrimSpace(username)
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if err := s.Profiles.UpdateUsername(ctx, userID, username); err != nil {
		switch {
		case isConflict(err):
			return nil, ErrUsernameTaken
		case isNotFound(err):
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.profile(ctx, userID)
}

func (s *ProfileService) ReferralInfo(ctx context.Context, userID int64) (*ReferralInfo, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	n, err := s.Referrals.CountReferrals(ctx, p.WalletAddress)
	if err != nil {
		return nil, err
	}
	return &ReferralInfo{Code: p.ReferralCode, Referrals: n}, nil
}

// ApplyReferralCode links the caller to the code's owner. It can happen once.
func (s *ProfileService) ApplyReferralCode(ctx context.Context, userID int64, code string) (*domain.Profile, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrInvalidReferralCode
	}
	if p.ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}
	referrer, err := s.Referrals.GetByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}
	if referrer.WalletAddress == p.WalletAddress {
		return nil, ErrSelfReferral
	}

	linked, err := s.Referrals.LinkReferrer(ctx, p.WalletAddress, referrer.WalletAddress)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrAlreadyReferred
	}
	s.audit.Log(ctx, p.ID, domain.AuditActionReferralLinked, domain.AuditCategoryAuth, map[string]interface{}{
		"referrer": referrer.WalletAddress,
	})
	return s.profile(ctx, userID)
}

func (s *ProfileService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.Ledger.Top(ctx, leaderboardLimit)
}
