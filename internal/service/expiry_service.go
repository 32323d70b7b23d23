package service

import (
	"context"
	"fmt"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
	"noizlabs/internal/metrics"
	"noizlabs/internal/storage"
)

const expiryBatchSize = 100

// ExpiryReport summarises one sweep.
type ExpiryReport struct {
	Processed int `json:"processed"`
	Awarded   int `json:"awarded"`
	Failed    int `json:"failed"`
}

// ExpiryService pays the winner of each expired category and removes it.
type ExpiryService struct {
	Deps
	balance *BalanceService
	blobs   storage.BlobStore
}

func NewExpiryService(d Deps, blobs storage.BlobStore) *ExpiryService {
	return &ExpiryService{Deps: d, balance: NewBalanceService(d), blobs: blobs}
}

// ProcessExpired sweeps every category whose expiry has passed. Each
// category is handled in its own transaction; a failure is logged and
// counted and the sweep moves on.
func (s *ExpiryService) ProcessExpired(ctx context.Context) (*ExpiryReport, error) {
	log := logger.WithContext(ctx)
	now := s.now()
	report := &ExpiryReport{}
	failed := make(map[int64]bool)

	for {
		batch, err := s.Categories.ListExpired(ctx, now, expiryBatchSize)
		if err != nil {
			return report, fmt.Errorf("list expired categories: %w", err)
		}

		progressed := false
		for _, cat := range batch {
			if failed[cat.ID] {
				continue
			}
			progressed = true

			awarded, err := s.expire(ctx, cat)
			if err != nil {
				failed[cat.ID] = true
				report.Failed++
				metrics.CategoriesSwept.WithLabelValues("failed").Inc()
				log.Error("category expiry failed", "category_id", cat.ID, "error", err)
				continue
			}
			report.Processed++
			metrics.CategoriesSwept.WithLabelValues("processed").Inc()
			if awarded {
				report.Awarded++
			}
		}

		if !progressed || len(batch) < expiryBatchSize {
			break
		}
	}

	log.Info("category expiry sweep done", "processed", report.Processed, "awarded", report.Awarded, "failed", report.Failed)
	return report, nil
}

func (s *ExpiryService) expire(ctx context.Context, cat *domain.Category) (bool, error) {
	var (
		award *domain.PointAward
		keys  []string
	)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		award, keys = nil, nil

		tallies, err := s.Clips.Tally(ctx, cat.ID)
		if err != nil {
			return fmt.Errorf("tally: %w", err)
		}
		for _, t := range tallies {
			if t.ObjectKey != "" {
				keys = append(keys, t.ObjectKey)
			}
		}

		details := map[string]interface{}{"category_id": cat.ID, "clips": len(tallies)}
		if winner, ok := domain.PickWinner(tallies); ok {
			p, err := s.Profiles.GetByWallet(ctx, winner.CreatorWallet)
			if err != nil {
				return fmt.Errorf("winner profile: %w", err)
			}
			a, applied, err := s.balance.Credit(ctx, p.ID, p.WalletAddress, domain.AwardCategoryWinner, domain.RefID(cat.ID), domain.PointsCategoryWinner)
			if err != nil {
				return fmt.Errorf("credit winner: %w", err)
			}
			if applied {
				award = a
			}
			details["winner_clip"] = winner.ID
			details["winner_wallet"] = winner.CreatorWallet
			details["votes"] = winner.Votes
		}

		if err := s.Categories.Delete(ctx, cat.ID); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		s.balance.audit.Log(ctx, 0, domain.AuditActionCategoryExpiry, domain.AuditCategoryJobs, details)
		return nil
	})
	if err != nil {
		return false, err
	}

	if award != nil {
		s.balance.Publish(ctx, fmt.Sprintf("Winning clip in %q", cat.Name), award)
	}
	if len(keys) > 0 && s.blobs != nil {
		if err := s.blobs.Delete(ctx, keys...); err != nil {
			logger.WithContext(ctx).Warn("clip blob cleanup failed", "category_id", cat.ID, "keys", len(keys), "error", err)
		}
	}
	return award != nil, nil
}
