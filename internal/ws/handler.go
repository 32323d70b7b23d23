package ws

import (
	"context"
	"net/http"

	"noizlabs/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenParser validates an access token and returns its user id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// WalletLookup resolves the wallet of an authenticated user.
type WalletLookup func(ctx context.Context, userID int64) (string, error)

// HandleWS upgrades /ws?token=<jwt> into the caller's points feed.
func HandleWS(hub *Hub, tokens TokenParser, wallets WalletLookup, allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "reason": "unauthorized"})
			return
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "reason": "unauthorized"})
			return
		}

		wallet, err := wallets(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reason": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(userID, wallet, conn, hub)
		go client.Run()
	}
}
