package dto

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ExpireRequest is sent by a screen whose backend call answered 401. Token is the
// access token the screen used, so a stale report cannot end a newer session.
type ExpireRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

type UserResponse struct {
	Id                 string `json:"id"`
	Email              string `json:"email"`
	Username           string `json:"username,omitempty"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	DisplayName        string `json:"display_name"`
	Role               string `json:"role"`
	IsAdmin            bool   `json:"is_admin"`
	MustChangePassword bool   `json:"must_change_password"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
	Token         string        `json:"token,omitempty"`
	TokenType     string        `json:"token_type,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	LoginPending  bool          `json:"login_pending"`
}

// LoginResponse carries the new session and where the console should go next.
type LoginResponse struct {
	Session  SessionResponse `json:"session"`
	Redirect string          `json:"redirect"`
}
