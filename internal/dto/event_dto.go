package dto

import "time"

// SessionChangedMessage travels on the in-process bus and, wrapped as
// {"type":"session","data":...}, over the websocket.
type SessionChangedMessage struct {
	ConsoleId  string          `json:"console_id"`
	Event      string          `json:"event"`
	Reason     string          `json:"reason,omitempty"`
	Session    SessionResponse `json:"session"`
	OccurredAt time.Time       `json:"occurred_at"`
}
