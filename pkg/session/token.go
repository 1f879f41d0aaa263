package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// NewToken builds the stored credential from a login answer. When expiresIn is not
// positive the expiry is read from the JWT "exp" claim, if the token is a JWT at all.
// The signature is not checked: the console never holds the backend's signing key.
func NewToken(accessToken, tokenType string, expiresIn int64, now time.Time) *oauth2.Token {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	tok := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   normalizeTokenType(tokenType),
	}
	if expiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(expiresIn) * time.Second)
		return tok
	}
	if exp, ok := JWTExpiry(accessToken); ok {
		tok.Expiry = exp
	}
	return tok
}

// JWTExpiry extracts the exp claim without verifying the token.
func JWTExpiry(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token has a known expiry in the past.
func Expired(tok *oauth2.Token, now time.Time) bool {
	if tok == nil {
		return true
	}
	if tok.Expiry.IsZero() {
		return false
	}
	return !now.Before(tok.Expiry)
}

func normalizeTokenType(t string) string {
	if strings.EqualFold(t, "bearer") {
		return "Bearer"
	}
	return t
}
