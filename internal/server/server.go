package server

import (
	"log"
	"path/filepath"

	"intelligencehub-console/internal/bootstrap"
	"intelligencehub-console/internal/config"
	"intelligencehub-console/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"status": "up"}))
	})

	// Static assets of the console SPA bypass the guard
	if cfg.App.StaticDir != "" {
		app.Static("/assets", filepath.Join(cfg.App.StaticDir, "assets"))
	}

	app.Use(serverutils.ConsoleMiddleware(serverutils.ConsoleCookieConfig{
		Name:   cfg.Console.CookieName,
		Secure: cfg.Console.CookieSecure,
	}))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Console is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.AuthController.RegisterRoutes(api)
	c.NavigationController.RegisterRoutes(api)
	c.SessionHandler.RegisterRoutes(api)

	api.All("/*", func(ctx *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	// Guarded pages, must stay last
	app.Get("/*", c.NavigationController.Page)
}
