package handlers

import (
	"net/http"

	"noizlabs/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Username      string `json:"username"`
}

// AuthWallet verifies a signed challenge and returns a one-time login link.
func (h *Handler) AuthWallet(c *gin.Context) {
	var req AuthWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Auth.Authenticate(c.Request.Context(), service.AuthRequest{
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Message:       req.Message,
		Username:      req.Username,
		IP:            c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":     res.UserID,
		"isNewUser":  res.IsNewUser,
		"properties": res.Link,
	})
}

type SessionRequest struct {
	Token string `json:"token"`
}

// AuthSession exchanges a login token for an access token.
func (h *Handler) AuthSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		badRequest(c, "token is required")
		return
	}

	sess, err := h.Auth.ExchangeLoginToken(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
