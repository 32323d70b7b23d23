package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
	"noizlabs/internal/metrics"
	"noizlabs/internal/ratelimit"
)

// FreshnessWindow is how old a referenced row may be when its award is claimed.
const FreshnessWindow = 5 * time.Minute

// AwardData carries the reference id for the requested action.
type AwardData struct {
	ClipID     int64 `json:"clipId"`
	VoteID     int64 `json:"voteId"`
	CategoryID int64 `json:"categoryId"`
	TaskID     int64 `json:"taskId"`
}

type AwardRequest struct {
	Action domain.AwardAction `json:"action"`
	Data   AwardData          `json:"data"`
}

type AwardResult struct {
	Points  int64  `json:"points"`
	Reason  string `json:"reason"`
	Balance int64  `json:"balance"`
}

// PointsService is the award guard: it recomputes every award from the
// referenced row and never trusts an amount from the caller.
type PointsService struct {
	Deps
	balance *BalanceService
	limiter ratelimit.Limiter
}

func NewPointsService(d Deps, limiter ratelimit.Limiter) *PointsService {
	return &PointsService{Deps: d, balance: NewBalanceService(d), limiter: limiter}
}

func (s *PointsService) Award(ctx context.Context, userID int64, req AwardRequest) (*AwardResult, error) {
	res, err := s.award(ctx, userID, req)
	if err != nil {
		metrics.AwardsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	return res, nil
}

func (s *PointsService) award(ctx context.Context, userID int64, req AwardRequest) (*AwardResult, error) {
	p, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		rl, err := s.limiter.Allow(ctx, p.WalletAddress)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		if !rl.Allowed {
			return nil, &LimitError{RetryAfter: rl.RetryAfter}
		}
	}

	if !req.Action.Valid() {
		return nil, ErrUnknownAction
	}

	var (
		awards []*domain.PointAward
		reason string
	)
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		switch req.Action {
		case domain.ActionUpload:
			awards, reason, err = s.awardUpload(ctx, p, req.Data.ClipID)
		case domain.ActionVote:
			awards, reason, err = s.awardVote(ctx, p, req.Data.VoteID)
		case domain.ActionCategory:
			awards, reason, err = s.awardCategory(ctx, p, req.Data.CategoryID)
		case domain.ActionReferral:
			awards, reason, err = s.awardReferral(ctx, p, req.Data.CategoryID)
		case domain.ActionTask:
			awards, reason, err = s.awardTask(ctx, p, req.Data.TaskID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.balance.Publish(ctx, reason, awards...)

	res := &AwardResult{Reason: reason}
	for _, a := range awards {
		if a.WalletAddress == p.WalletAddress {
			res.Points += a.Points
		}
	}
	if res.Balance, err = s.Ledger.Balance(ctx, p.WalletAddress); err != nil {
		logger.WithContext(ctx).Warn("balance lookup failed", "wallet", p.WalletAddress, "error", err)
	}
	return res, nil
}

func (s *PointsService) fresh(createdAt time.Time) bool {
	return s.now().Sub(createdAt) <= FreshnessWindow
}

// credit applies the primary award of a call; a used marker is reported
// as ErrAlreadyAwarded.
func (s *PointsService) credit(ctx context.Context, p *domain.Profile, action, ref string, points int64) (*domain.PointAward, error) {
	award, applied, err := s.balance.Credit(ctx, p.ID, p.WalletAddress, action, ref, points)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrAlreadyAwarded
	}
	return award, nil
}

// bonus applies a once-per-day quest bonus after its flag was claimed.
func (s *PointsService) bonus(ctx context.Context, p *domain.Profile, action string, day time.Time, points int64) (*domain.PointAward, error) {
	award, applied, err := s.balance.Credit(ctx, p.ID, p.WalletAddress, action, domain.RefDay(day), points)
	if err != nil || !applied {
		return nil, err
	}
	return award, nil
}

func (s *PointsService) awardUpload(ctx context.Context, p *domain.Profile, clipID int64) ([]*domain.PointAward, string, error) {
	clip, err := s.Clips.GetByID(ctx, clipID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidClip
		}
		return nil, "", err
	}
	if clip.CreatorWallet != p.WalletAddress {
		return nil, "", ErrInvalidClip
	}
	if !s.fresh(clip.CreatedAt) {
		return nil, "", ErrTooOld
	}

	a, err := s.credit(ctx, p, string(domain.ActionUpload), domain.RefID(clip.ID), domain.PointsUpload)
	if err != nil {
		return nil, "", err
	}
	return []*domain.PointAward{a}, "Clip uploaded", nil
}

func (s *PointsService) awardVote(ctx context.Context, p *domain.Profile, voteID int64) ([]*domain.PointAward, string, error) {
	vote, err := s.Votes.GetByID(ctx, voteID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidVote
		}
		return nil, "", err
	}
	if vote.VoterWallet != p.WalletAddress {
		return nil, "", ErrInvalidVote
	}
	if !s.fresh(vote.CreatedAt) {
		return nil, "", ErrTooOld
	}

	a, err := s.credit(ctx, p, string(domain.ActionVote), domain.RefID(vote.ID), domain.PointsVote)
	if err != nil {
		return nil, "", err
	}
	awards := []*domain.PointAward{a}
	reason := "Vote cast"

	today := domain.QuestDay(s.now())
	n, err := s.Quests.IncrementVotes(ctx, p.WalletAddress, today)
	if err != nil {
		return nil, "", err
	}
	if n >= domain.VoteBonusThreshold {
		claimed, err := s.Quests.ClaimFlag(ctx, p.WalletAddress, today, domain.QuestFlagVoteBonusClaimed)
		if err != nil {
			return nil, "", err
		}
		if claimed {
			b, err := s.bonus(ctx, p, domain.AwardVoteBonus, today, domain.PointsVoteBonus)
			if err != nil {
				return nil, "", err
			}
			if b != nil {
				awards = append(awards, b)
				reason = "Vote cast + daily voting quest"
			}
		}
	}
	return awards, reason, nil
}

func (s *PointsService) ownedFreshCategory(ctx context.Context, p *domain.Profile, categoryID int64) (*domain.Category, error) {
	cat, err := s.Categories.GetByID(ctx, categoryID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCategory
		}
		return nil, err
	}
	if cat.CreatorWallet != p.WalletAddress {
		return nil, ErrInvalidCategory
	}
	if !s.fresh(cat.CreatedAt) {
		return nil, ErrTooOld
	}
	return cat, nil
}

func (s *PointsService) awardCategory(ctx context.Context, p *domain.Profile, categoryID int64) ([]*domain.PointAward, string, error) {
	cat, err := s.ownedFreshCategory(ctx, p, categoryID)
	if err != nil {
		return nil, "", err
	}

	a, err := s.credit(ctx, p, string(domain.ActionCategory), domain.RefID(cat.ID), domain.PointsCategory)
	if err != nil {
		return nil, "", err
	}
	awards := []*domain.PointAward{a}
	reason := "Category created"

	today := domain.QuestDay(s.now())
	claimed, err := s.Quests.ClaimFlag(ctx, p.WalletAddress, today, domain.QuestFlagCategoryCreated)
	if err != nil {
		return nil, "", err
	}
	if claimed {
		b, err := s.bonus(ctx, p, domain.AwardCategoryQuest, today, domain.PointsCategoryQuest)
		if err != nil {
			return nil, "", err
		}
		if b != nil {
			awards = append(awards, b)
			reason = "Category created + daily quest"
		}
	}
	return awards, reason, nil
}

// awardReferral pays both sides once the referred wallet creates its first
// category. The marker is the referred wallet, so it pays at most once ever.
func (s *PointsService) awardReferral(ctx context.Context, p *domain.Profile, categoryID int64) ([]*domain.PointAward, string, error) {
	if p.ReferredBy == nil || *p.ReferredBy == "" {
		return nil, "", ErrInvalidReferral
	}
	cat, err := s.ownedFreshCategory(ctx, p, categoryID)
	if err != nil {
		return nil, "", err
	}
	first, err := s.Categories.FirstByCreator(ctx, p.WalletAddress)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidReferral
		}
		return nil, "", err
	}
	if first.ID != cat.ID {
		return nil, "", ErrInvalidReferral
	}

	referrer, err := s.Profiles.GetByWallet(ctx, *p.ReferredBy)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidReferral
		}
		return nil, "", err
	}

	a, err := s.credit(ctx, p, string(domain.ActionReferral), p.WalletAddress, domain.PointsReferral)
	if err != nil {
		return nil, "", err
	}
	b, applied, err := s.balance.Credit(ctx, referrer.ID, referrer.WalletAddress, domain.AwardReferrer, p.WalletAddress, domain.PointsReferral)
	if err != nil {
		return nil, "", err
	}
	if !applied {
		return nil, "", ErrAlreadyAwarded
	}
	s.audit().Log(ctx, p.ID, domain.AuditActionReferralLinked, domain.AuditCategoryPoints, map[string]interface{}{
		"referrer": referrer.WalletAddress,
		"category": cat.ID,
	})
	return []*domain.PointAward{a, b}, "Referral completed", nil
}

func (s *PointsService) awardTask(ctx context.Context, p *domain.Profile, taskID int64) ([]*domain.PointAward, string, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidTask
		}
		return nil, "", err
	}
	if !task.IsActive {
		return nil, "", ErrInvalidTask
	}
	ut, err := s.Tasks.GetUserTask(ctx, p.WalletAddress, task.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrInvalidTask
		}
		return nil, "", err
	}
	if !ut.Verified {
		return nil, "", ErrInvalidTask
	}
	if !s.fresh(ut.CreatedAt) {
		return nil, "", ErrTooOld
	}

	a, err := s.credit(ctx, p, string(domain.ActionTask), domain.RefID(task.ID), task.Reward)
	if err != nil {
		return nil, "", err
	}
	return []*domain.PointAward{a}, "Task completed: " + task.Title, nil
}

func (s *PointsService) audit() *AuditService {
	return s.balance.audit
}

func rejectReason(err error) string {
	for _, e := range []error{
		ErrUnauthorized, ErrRateLimited, ErrUnknownAction, ErrTooOld, ErrAlreadyAwarded,
		ErrInvalidClip, ErrInvalidVote, ErrInvalidCategory, ErrInvalidTask, ErrInvalidReferral,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "error"
}
