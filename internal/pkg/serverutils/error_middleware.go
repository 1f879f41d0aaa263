package serverutils

import (
	"errors"

	"intelligencehub-console/pkg/session"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps session errors to HTTP statuses.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest
	}

	switch session.KindOf(err) {
	case session.KindMissingCredentials:
		return fiber.StatusBadRequest
	case session.KindInvalidCredentials, session.KindSessionExpired:
		return fiber.StatusUnauthorized
	case session.KindLoginInProgress, session.KindLoginAbandoned:
		return fiber.StatusConflict
	case session.KindNetworkFailure:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// MessageFor is the text shown to the operator for err.
func MessageFor(err error) string {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Message
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		if _, ok := validationErr.Fields["username"]; ok {
			return session.MsgMissingCredentials
		}
		if _, ok := validationErr.Fields["password"]; ok {
			return session.MsgMissingCredentials
		}
		return validationErr.Error()
	}
	if session.KindOf(err) != 0 {
		return session.Message(err)
	}
	return "Errore interno"
}

// ErrorHandlerMiddleware turns any error returned down the chain into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, MessageFor(err)))
	}
}
