package bootstrap

import (
	"context"
	"log"

	"intelligencehub-console/internal/config"
	"intelligencehub-console/internal/controller"
	"intelligencehub-console/internal/handler"
	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/internal/repository/contract"
	"intelligencehub-console/internal/repository/memory"
	redisrepo "intelligencehub-console/internal/repository/redis"
	"intelligencehub-console/internal/service"
	"intelligencehub-console/internal/websocket"
	"intelligencehub-console/pkg/authclient"
	"intelligencehub-console/pkg/guard"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	AuthController       controller.IAuthController
	NavigationController controller.INavigationController

	// WebSockets
	SessionHandler *handler.SessionHandler
	WebSocketHub   *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	AuditService    *service.AuditService

	Logger logger.ILogger

	pubSub *gochannel.GoChannel
}

func NewContainer(cfg *config.Config, infra *Infrastructure) *Container {
	if infra == nil {
		infra = &Infrastructure{}
	}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Event Bus
	// Publishing blocks until the consumer acks, so tabs see changes in store order.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)

	// 3. Repositories
	consoleRepo := memory.NewConsoleRepository(cfg.Console.IdleTTL)
	var tokenRepo contract.TokenRepository
	if cfg.Console.DurableSessions && infra.Redis != nil {
		tokenRepo = redisrepo.NewTokenRepository(infra.Redis, cfg.Console.TokenFallbackTTL)
		log.Printf("[INFO] Durable console sessions stored in Redis")
	}

	// 4. Session core
	authClient := authclient.New(cfg.Console.BackendURL, authclient.WithPaths(cfg.Console.LoginPath, cfg.Console.MePath))
	table := guard.NewTable(guard.DefaultRoutes(), guard.WithHomePath(cfg.Console.HomePath))

	// 5. Services
	publisherService := service.NewPublisherService(service.SessionTopic, pubSub)
	consoleService := service.NewConsoleService(authClient, consoleRepo, tokenRepo, publisherService, sysLogger)
	authService := service.NewAuthService(consoleService, table, cfg.Console.LoginTimeout, sysLogger)
	navigationService := service.NewNavigationService(consoleService, table)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogPath)
	wsHub := websocket.NewHub(infra.Redis, wsLogger)

	var eventPublisher service.EventPublisher
	if infra.NatsPub != nil {
		eventPublisher = infra.NatsPub
	}
	consumerService := service.NewConsumerService(pubSub, service.SessionTopic, wsHub, eventPublisher, sysLogger)

	var auditService *service.AuditService
	if infra.NatsSub != nil {
		auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogPath)
		auditService = service.NewAuditService(infra.NatsSub, auditLogger, sysLogger)
	}

	// 6. Controllers
	return &Container{
		AuthController:       controller.NewAuthController(authService),
		NavigationController: controller.NewNavigationController(navigationService, cfg.App.StaticDir),
		SessionHandler:       handler.NewSessionHandler(authService, wsHub, wsLogger),
		WebSocketHub:         wsHub,
		ConsumerService:      consumerService,
		AuditService:         auditService,
		Logger:               sysLogger,
		pubSub:               pubSub,
	}
}

// Start runs the background workers until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}

	if c.AuditService != nil {
		if err := c.AuditService.Start(ctx); err != nil {
			// Auditing is best effort; the console keeps working without it
			log.Printf("[WARN] Audit service not started: %v", err)
		}
	}
	return nil
}

func (c *Container) Close() error {
	_ = c.Logger.Sync()
	return c.pubSub.Close()
}
