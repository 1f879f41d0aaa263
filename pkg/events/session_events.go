package events

import (
	"strings"
	"time"
)

const (
	SessionLogin    = "SESSION_LOGIN"
	SessionLogout   = "SESSION_LOGOUT"
	SessionExpired  = "SESSION_EXPIRED"
	SessionRestored = "SESSION_RESTORED"

	// SessionSubjects matches every session event on the EVENTS stream.
	SessionSubjects = "events.SESSION_*"
)

// Event is what travels on the EVENTS stream. Every type the console emits is one of
// the SESSION_* constants.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// SessionEvent is a console session transition. It never carries the access token.
type SessionEvent struct {
	Type       string
	ConsoleID  string
	UserID     string
	Email      string
	Role       string
	Reason     string
	OccurredAt time.Time
}

func (e SessionEvent) EventType() string {
	return e.Type
}

func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"console_id":  e.ConsoleID,
		"user_id":     e.UserID,
		"email":       e.Email,
		"role":        e.Role,
		"reason":      e.Reason,
		"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func (e SessionEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ReceivedEvent is a session event decoded from a stream message, with the payload
// exactly as published.
type ReceivedEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// Received decodes a message published on subject. Without a readable occurred_at the
// event is stamped with received.
func Received(subject string, payload map[string]interface{}, received time.Time) ReceivedEvent {
	return ReceivedEvent{
		Type:       TypeFromSubject(subject),
		Data:       payload,
		OccurredAt: TimestampOf(payload, received),
	}
}

func (e ReceivedEvent) EventType() string {
	return e.Type
}

func (e ReceivedEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e ReceivedEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ConsoleID reads console_id from the payload.
func (e ReceivedEvent) ConsoleID() string {
	id, _ := e.Data["console_id"].(string)
	return id
}

// TypeFromSubject strips the "events." prefix of a NATS subject.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, "events.")
}

// TimestampOf reads occurred_at from a decoded payload, falling back to fallback.
func TimestampOf(payload map[string]interface{}, fallback time.Time) time.Time {
	raw, ok := payload["occurred_at"].(string)
	if !ok {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fallback
	}
	return t
}
