package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady         = "ready"
	MsgPong          = "pong"
	MsgPointsAwarded = "points_awarded"
)

// Message is the envelope of every frame on the feed.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
