package session

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindNetworkFailure
	KindSessionExpired
	KindMissingCredentials
	KindLoginInProgress
	KindLoginAbandoned
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNetworkFailure:
		return "network_failure"
	case KindSessionExpired:
		return "session_expired"
	case KindMissingCredentials:
		return "missing_credentials"
	case KindLoginInProgress:
		return "login_in_progress"
	case KindLoginAbandoned:
		return "login_abandoned"
	default:
		return "unknown"
	}
}

// Messages shown to the operator. The console UI is Italian.
const (
	MsgInvalidCredentials = "Credenziali non valide"
	MsgNetworkFailure     = "Errore di connessione"
	MsgSessionExpired     = "Sessione scaduta, effettua nuovamente l'accesso"
	MsgMissingCredentials = "Inserisci username e password"
	MsgLoginInProgress    = "Accesso in corso..."
	MsgLoginAbandoned     = "Accesso annullato"
)

// AuthError is the only error type the store returns. Message is safe to display;
// Err keeps the underlying cause for logs.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any AuthError of the same kind, so the sentinels below work with errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials, Message: MsgInvalidCredentials}
	ErrNetworkFailure     = &AuthError{Kind: KindNetworkFailure, Message: MsgNetworkFailure}
	ErrSessionExpired     = &AuthError{Kind: KindSessionExpired, Message: MsgSessionExpired}
	ErrMissingCredentials = &AuthError{Kind: KindMissingCredentials, Message: MsgMissingCredentials}
	ErrLoginInProgress    = &AuthError{Kind: KindLoginInProgress, Message: MsgLoginInProgress}
	ErrLoginAbandoned     = &AuthError{Kind: KindLoginAbandoned, Message: MsgLoginAbandoned}
)

func defaultMessage(kind Kind) string {
	switch kind {
	case KindInvalidCredentials:
		return MsgInvalidCredentials
	case KindNetworkFailure:
		return MsgNetworkFailure
	case KindSessionExpired:
		return MsgSessionExpired
	case KindMissingCredentials:
		return MsgMissingCredentials
	case KindLoginInProgress:
		return MsgLoginInProgress
	case KindLoginAbandoned:
		return MsgLoginAbandoned
	}
	return MsgNetworkFailure
}

// NewAuthError builds an AuthError; an empty message falls back to the kind's default.
func NewAuthError(kind Kind, message string, err error) *AuthError {
	if message == "" {
		message = defaultMessage(kind)
	}
	return &AuthError{Kind: kind, Message: message, Err: err}
}

// InvalidCredentials wraps a backend rejection, keeping its reason when given.
func InvalidCredentials(reason string) *AuthError {
	return NewAuthError(KindInvalidCredentials, reason, nil)
}

// NetworkFailure wraps a transport or protocol error.
func NetworkFailure(err error) *AuthError {
	return NewAuthError(KindNetworkFailure, "", err)
}

// SessionExpired wraps an unauthorized answer from any API call.
func SessionExpired(err error) *AuthError {
	return NewAuthError(KindSessionExpired, "", err)
}

// Message returns the user-facing text for any error, never a raw transport error.
func Message(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return MsgNetworkFailure
}

// KindOf returns the AuthError kind or 0.
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}

// classify turns whatever an Authenticator returned into an AuthError.
func classify(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return NetworkFailure(err)
}
