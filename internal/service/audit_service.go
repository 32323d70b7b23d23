package service

import (
	"context"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
)

// AuditService handles audit logging
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogAward records a ledger credit
func (s *AuditService) LogAward(ctx context.Context, userID int64, award *domain.PointAward) {
	s.Log(ctx, userID, domain.AuditActionPointsAwarded, domain.AuditCategoryPoints, map[string]interface{}{
		"wallet":    award.WalletAddress,
		"action":    award.Action,
		"reference": award.Reference,
		"points":    award.Points,
	})
}
