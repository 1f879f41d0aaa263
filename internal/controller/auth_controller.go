package controller

import (
	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/pkg/serverutils"
	"intelligencehub-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Expire(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/console/auth")
	h.Post("/login", c.Login)
	h.Post("/logout", c.Logout)
	h.Post("/expire", c.Expire)
	h.Get("/session", c.Session)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Richiesta non valida")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), serverutils.ConsoleID(ctx), &req, ctx.Query("next"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Accesso effettuato", res))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	res, err := c.service.Logout(ctx.UserContext(), serverutils.ConsoleID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Disconnesso", res))
}

func (c *authController) Expire(ctx *fiber.Ctx) error {
	var req dto.ExpireRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Richiesta non valida")
		}
	}

	res, err := c.service.Expire(ctx.UserContext(), serverutils.ConsoleID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Sessione aggiornata", res))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	res, err := c.service.Session(ctx.UserContext(), serverutils.ConsoleID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Sessione corrente", res))
}
