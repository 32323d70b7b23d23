package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"noizlabs/internal/logger"
	"noizlabs/internal/service"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	reason string
}

// Checked in order, first match wins.
var errorTable = []errorMapping{
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrInvalidChallenge, http.StatusUnauthorized, "invalid_challenge"},
	{service.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{service.ErrInvalidLoginToken, http.StatusUnauthorized, "invalid_login_token"},
	{service.ErrIPAlreadyRegistered, http.StatusForbidden, "ip_already_registered"},

	{service.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{service.ErrInvalidWallet, http.StatusBadRequest, "invalid_wallet"},
	{service.ErrUnknownAction, http.StatusBadRequest, "unknown_action"},
	{service.ErrTooOld, http.StatusBadRequest, "too_old"},
	{service.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{service.ErrInvalidUsername, http.StatusBadRequest, "invalid_username"},
	{service.ErrInvalidReferralCode, http.StatusBadRequest, "invalid_referral_code"},
	{service.ErrSelfReferral, http.StatusBadRequest, "self_referral"},
	{service.ErrCategoryClosed, http.StatusBadRequest, "category_closed"},
	{service.ErrSelfVote, http.StatusBadRequest, "self_vote"},
	{service.ErrTaskRequirements, http.StatusBadRequest, "task_requirements"},

	{service.ErrInvalidClip, http.StatusForbidden, "invalid_clip"},
	{service.ErrInvalidVote, http.StatusForbidden, "invalid_vote"},
	{service.ErrInvalidCategory, http.StatusForbidden, "invalid_category"},
	{service.ErrInvalidTask, http.StatusForbidden, "invalid_task"},
	{service.ErrInvalidReferral, http.StatusForbidden, "invalid_referral"},

	{service.ErrCategoryNotFound, http.StatusNotFound, "category_not_found"},
	{service.ErrClipNotFound, http.StatusNotFound, "clip_not_found"},
	{service.ErrTaskNotFound, http.StatusNotFound, "task_not_found"},

	{service.ErrAlreadyAwarded, http.StatusConflict, "already_awarded"},
	{service.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
	{service.ErrClipExists, http.StatusConflict, "clip_exists"},
	{service.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{service.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{service.ErrAlreadyReferred, http.StatusConflict, "already_referred"},
	{service.ErrTaskAlreadyCompleted, http.StatusConflict, "task_already_completed"},

	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "unsupported_media"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
}

// respondError writes {"error", "reason"} with the mapped status. Unknown
// errors are logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var limit *service.LimitError
	if errors.As(err, &limit) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limit.RetryAfter.Seconds()))))
	}

	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": m.err.Error(), "reason": m.reason})
			return
		}
	}

	logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "reason": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "reason": "bad_request"})
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": "unauthorized"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
