package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "u-1"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func TestNewTokenExpiry(t *testing.T) {
	now := time.Date(2025, 7, 17, 6, 40, 0, 0, time.UTC)
	exp := now.Add(30 * time.Minute)

	tests := []struct {
		name       string
		access     string
		tokenType  string
		expiresIn  int64
		wantExpiry time.Time
		wantType   string
	}{
		{name: "expires_in wins", access: signedJWT(t, now.Add(time.Hour)), tokenType: "bearer", expiresIn: 1800, wantExpiry: exp, wantType: "Bearer"},
		{name: "jwt exp claim", access: signedJWT(t, exp), wantExpiry: exp, wantType: "Bearer"},
		{name: "jwt without exp", access: signedJWT(t, time.Time{}), wantType: "Bearer"},
		{name: "opaque token", access: "opaque-token", tokenType: "MAC", wantType: "MAC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewToken(tt.access, tt.tokenType, tt.expiresIn, now)
			assert.Equal(t, tt.access, tok.AccessToken)
			assert.Equal(t, tt.wantType, tok.TokenType)
			assert.True(t, tt.wantExpiry.Equal(tok.Expiry), "expiry %v, want %v", tok.Expiry, tt.wantExpiry)
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, Expired(nil, now))
	assert.False(t, Expired(&oauth2.Token{AccessToken: "x"}, now))
	assert.False(t, Expired(&oauth2.Token{AccessToken: "x", Expiry: now.Add(time.Second)}, now))
	assert.True(t, Expired(&oauth2.Token{AccessToken: "x", Expiry: now}, now))
}

func TestAuthErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("users screen: %w", SessionExpired(errors.New("401")))

	assert.ErrorIs(t, wrapped, ErrSessionExpired)
	assert.NotErrorIs(t, wrapped, ErrInvalidCredentials)
	assert.Equal(t, KindSessionExpired, KindOf(wrapped))
	assert.Equal(t, MsgSessionExpired, Message(wrapped))

	assert.Equal(t, MsgNetworkFailure, Message(errors.New("raw transport error")))
	assert.Equal(t, Kind(0), KindOf(errors.New("raw")))
	assert.Equal(t, "Utente bloccato", InvalidCredentials("Utente bloccato").Message)
	assert.Equal(t, MsgInvalidCredentials, InvalidCredentials("").Message)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Stefano Andrello", User{FirstName: "Stefano", LastName: "Andrello", Email: "s@x.com"}.DisplayName())
	assert.Equal(t, "s.andrello", User{Email: "s.andrello@enduser-italia.com"}.DisplayName())
	assert.True(t, User{Role: "Admin"}.IsAdmin())
	assert.False(t, User{Role: "user"}.IsAdmin())
}
