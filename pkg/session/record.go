package session

import (
	"time"

	"golang.org/x/oauth2"
)

// Record is the serialised form used by persisters (Redis JSON, CLI YAML file).
type Record struct {
	User        User      `json:"user" yaml:"user"`
	AccessToken string    `json:"access_token" yaml:"access_token"`
	TokenType   string    `json:"token_type" yaml:"token_type"`
	Expiry      time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	SavedAt     time.Time `json:"saved_at" yaml:"saved_at"`
}

func NewRecord(s Session, savedAt time.Time) Record {
	if !s.Authenticated() {
		return Record{SavedAt: savedAt}
	}
	return Record{
		User:        *s.User,
		AccessToken: s.Token.AccessToken,
		TokenType:   s.Token.TokenType,
		Expiry:      s.Token.Expiry,
		SavedAt:     savedAt,
	}
}

// Session returns nil when the record carries no credential.
func (r Record) Session() *Session {
	if r.AccessToken == "" {
		return nil
	}
	u := r.User
	return &Session{
		User: &u,
		Token: &oauth2.Token{
			AccessToken: r.AccessToken,
			TokenType:   r.TokenType,
			Expiry:      r.Expiry,
		},
	}
}
