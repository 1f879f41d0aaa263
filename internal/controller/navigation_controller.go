package controller

import (
	"os"
	"path/filepath"

	"intelligencehub-console/internal/pkg/serverutils"
	"intelligencehub-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INavigationController interface {
	RegisterRoutes(r fiber.Router)
	Route(ctx *fiber.Ctx) error
	Menu(ctx *fiber.Ctx) error
	// Page is the guarded catch-all for console screens; register it last.
	Page(ctx *fiber.Ctx) error
}

type navigationController struct {
	service   service.INavigationService
	indexFile string
}

// NewNavigationController serves staticDir/index.html for allowed pages when it exists,
// and the decision as JSON otherwise.
func NewNavigationController(service service.INavigationService, staticDir string) INavigationController {
	c := &navigationController{service: service}
	if staticDir != "" {
		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.indexFile = index
		}
	}
	return c
}

func (c *navigationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/console/navigation")
	h.Get("/route", c.Route)
	h.Get("/menu", c.Menu)
}

func (c *navigationController) Route(ctx *fiber.Ctx) error {
	path := ctx.Query("path")
	if path == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Parametro path mancante")
	}

	res, err := c.service.Route(ctx.UserContext(), serverutils.ConsoleID(ctx), path)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Decisione di navigazione", res))
}

func (c *navigationController) Menu(ctx *fiber.Ctx) error {
	res, err := c.service.Menu(ctx.UserContext(), serverutils.ConsoleID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Menu", res))
}

func (c *navigationController) Page(ctx *fiber.Ctx) error {
	requested := ctx.Path()
	if q := string(ctx.Request().URI().QueryString()); q != "" {
		requested += "?" + q
	}

	d := c.service.Decide(ctx.UserContext(), serverutils.ConsoleID(ctx), requested)
	if !d.Allowed() {
		return ctx.Redirect(d.RedirectURL(), fiber.StatusFound)
	}

	if c.indexFile != "" {
		return ctx.SendFile(c.indexFile)
	}

	res, err := c.service.Route(ctx.UserContext(), serverutils.ConsoleID(ctx), requested)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pagina consentita", res))
}
