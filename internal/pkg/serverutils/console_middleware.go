package serverutils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	DefaultConsoleCookie = "ihub_console"
	consoleLocalKey      = "console_id"
)

type ConsoleCookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// ConsoleMiddleware issues the console id cookie on first contact and exposes the id
// through ConsoleID. Malformed ids are replaced.
func ConsoleMiddleware(cfg ConsoleCookieConfig) fiber.Handler {
	if cfg.Name == "" {
		cfg.Name = DefaultConsoleCookie
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 30 * 24 * time.Hour
	}

	return func(ctx *fiber.Ctx) error {
		id := ctx.Cookies(cfg.Name)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			ctx.Cookie(&fiber.Cookie{
				Name:     cfg.Name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge / time.Second),
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		ctx.Locals(consoleLocalKey, id)
		return ctx.Next()
	}
}

func ConsoleID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(consoleLocalKey).(string)
	return id
}
