package ws

import (
	"encoding/json"
	"sync"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
)

// Hub fans points events out to every open connection of a wallet.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Wallet]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Wallet] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Wallet]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.Wallet)
	}
}

// Connected reports how many connections a wallet has open.
func (h *Hub) Connected(wallet string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[wallet])
}

// PointsAwarded implements service.Notifier. Slow clients are skipped
// rather than blocking the caller.
func (h *Hub) PointsAwarded(ev domain.PointsEvent) {
	msg, err := json.Marshal(Message{Type: MsgPointsAwarded, Payload: ev})
	if err != nil {
		logger.Error("ws: marshal points event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[ev.WalletAddress] {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws: send buffer full, dropping event", "wallet", c.Wallet)
		}
	}
}
