package service

import (
	"context"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
	"noizlabs/internal/metrics"
)

// BalanceService is the single write path into the points ledger.
type BalanceService struct {
	Deps
	audit *AuditService
}

func NewBalanceService(d Deps) *BalanceService {
	return &BalanceService{Deps: d, audit: NewAuditService(d.Audit)}
}

// GetBalance returns the wallet's current balance
func (s *BalanceService) GetBalance(ctx context.Context, wallet string) (int64, error) {
	return s.Ledger.Balance(ctx, wallet)
}

// Credit appends one ledger entry and increments the balance. It must run
// inside a transaction. applied is false when the (wallet, action,
// reference) marker was already used.
func (s *BalanceService) Credit(ctx context.Context, userID int64, wallet, action, reference string, points int64) (*domain.PointAward, bool, error) {
	award := &domain.PointAward{
		WalletAddress: wallet,
		Action:        action,
		Reference:     reference,
		Points:        points,
	}
	applied, err := s.Ledger.Credit(ctx, award)
	if err != nil || !applied {
		return award, applied, err
	}
	s.audit.LogAward(ctx, userID, award)
	return award, true, nil
}

// Publish reports committed awards to metrics and the live feed. Call it
// only after the transaction that credited them has committed.
func (s *BalanceService) Publish(ctx context.Context, reason string, awards ...*domain.PointAward) {
	for _, a := range awards {
		if a == nil || a.ID == 0 {
			continue
		}
		metrics.PointsAwarded.WithLabelValues(a.Action).Add(float64(a.Points))

		balance, err := s.Ledger.Balance(ctx, a.WalletAddress)
		if err != nil {
			logger.WithContext(ctx).Warn("balance lookup for feed failed", "wallet", a.WalletAddress, "error", err)
		}
		s.notify(domain.PointsEvent{
			WalletAddress: a.WalletAddress,
			Action:        a.Action,
			Points:        a.Points,
			Balance:       balance,
			Reason:        reason,
			At:            s.now(),
		})
	}
}
