package session

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const RoleAdmin = "admin"

// User is the signed-in identity as reported by the authentication endpoint.
type User struct {
	ID                 string `json:"id" yaml:"id"`
	Email              string `json:"email" yaml:"email"`
	Username           string `json:"username,omitempty" yaml:"username,omitempty"`
	FirstName          string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Role               string `json:"role" yaml:"role"`
	MustChangePassword bool   `json:"must_change_password" yaml:"must_change_password"`
}

func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

// DisplayName returns the full name when known, otherwise the local part of the email.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Credentials are what the login screen collects.
type Credentials struct {
	Identifier string
	Secret     string
}

// Grant is a successful answer from the authentication endpoint.
type Grant struct {
	User  User
	Token *oauth2.Token
}

// Session is an immutable snapshot of the store state.
// User and Token are either both set or both nil.
type Session struct {
	User  *User
	Token *oauth2.Token
}

func (s Session) Authenticated() bool {
	return s.User != nil && s.Token != nil
}

// AccessToken returns the opaque credential, or "" when unauthenticated.
func (s Session) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// ExpiresAt returns the token expiry; zero means unknown.
func (s Session) ExpiresAt() time.Time {
	if s.Token == nil {
		return time.Time{}
	}
	return s.Token.Expiry
}

func (s Session) clone() Session {
	if !s.Authenticated() {
		return Session{}
	}
	u := *s.User
	t := *s.Token
	return Session{User: &u, Token: &t}
}

type EventKind string

const (
	EventLogin    EventKind = "login"
	EventLogout   EventKind = "logout"
	EventExpired  EventKind = "expired"
	EventRestored EventKind = "restored"
	EventSynced   EventKind = "synced"
)

// Event is delivered to listeners after every state change. EventSynced marks a change
// that another process made to a shared persister.
type Event struct {
	Kind       EventKind
	Session    Session
	Reason     string
	OccurredAt time.Time
}

// Listener must not call mutating Store methods.
type Listener func(Event)
