package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProcessCategoryExpiry runs one expiry sweep on demand.
func (h *Handler) ProcessCategoryExpiry(c *gin.Context) {
	report, err := h.Expiry.ProcessExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ResetDailyQuests(c *gin.Context) {
	n, err := h.Checkins.ResetDailyQuests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
