package handler

import (
	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/internal/pkg/serverutils"
	"intelligencehub-console/internal/service"
	internalWS "intelligencehub-console/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionHandler upgrades a console tab to a websocket that receives every session
// change of its console.
type SessionHandler struct {
	auth   service.IAuthService
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewSessionHandler(auth service.IAuthService, hub *internalWS.Hub, log logger.ILogger) *SessionHandler {
	return &SessionHandler{
		auth:   auth,
		hub:    hub,
		logger: log,
	}
}

func (h *SessionHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/console/ws", h.ServeWs)
}

func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	consoleID := serverutils.ConsoleID(c)
	// Open the console now so the snapshot below is a memory read.
	if _, err := h.auth.Session(c.UserContext(), consoleID); err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionHandler", "Starting WebSocket session", map[string]interface{}{"console_id": consoleID})
		internalWS.ServeWs(h.hub, conn, consoleID, func() dto.SessionResponse {
			return h.auth.Snapshot(consoleID)
		})
		h.logger.Info("SessionHandler", "WebSocket session ended", map[string]interface{}{"console_id": consoleID})
	})(c)
}
