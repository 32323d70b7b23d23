package handlers

import (
	"net/http"

	"noizlabs/internal/service"

	"github.com/gin-gonic/gin"
)

// AwardPoints is the award guard endpoint. The body names an action and a
// reference, never an amount.
func (h *Handler) AwardPoints(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req service.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Points.Award(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DailyCheckin checks the caller in for today (UTC).
func (h *Handler) DailyCheckin(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	res, err := h.Checkins.CheckIn(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
