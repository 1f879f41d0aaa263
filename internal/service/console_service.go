package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/mapper"
	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/internal/repository/contract"
	"intelligencehub-console/pkg/session"
)

const SessionTopic = "console.session"

// IConsoleService hands out the per-console session store, creating and restoring it
// on first use.
type IConsoleService interface {
	Open(ctx context.Context, consoleID string) *contract.Console
	// Lookup returns a console only if it is already open. It never touches Redis.
	Lookup(consoleID string) (*contract.Console, bool)
}

type consoleService struct {
	auth      session.Authenticator
	consoles  contract.ConsoleRepository
	tokens    contract.TokenRepository
	publisher IPublisherService
	mapper    *mapper.SessionMapper
	logger    logger.ILogger
}

// NewConsoleService builds the console registry front. tokens may be nil, in which
// case sessions live only as long as the console stays in memory.
func NewConsoleService(
	auth session.Authenticator,
	consoles contract.ConsoleRepository,
	tokens contract.TokenRepository,
	publisher IPublisherService,
	log logger.ILogger,
) IConsoleService {
	return &consoleService{
		auth:      auth,
		consoles:  consoles,
		tokens:    tokens,
		publisher: publisher,
		mapper:    mapper.NewSessionMapper(),
		logger:    log,
	}
}

func (s *consoleService) Open(ctx context.Context, consoleID string) *contract.Console {
	console, created := s.consoles.GetOrCreate(consoleID, func() *contract.Console {
		return s.newConsole(consoleID)
	})
	if created {
		s.logger.Debug("CONSOLE", "Console created", map[string]interface{}{
			"console_id":    consoleID,
			"open_consoles": s.consoles.Count(),
		})
		s.restore(ctx, console)
		return console
	}

	// Requests racing the first one must not see the console before it is restored.
	if err := console.WaitReady(ctx); err != nil {
		return console
	}
	s.sync(ctx, console)
	return console
}

func (s *consoleService) Lookup(consoleID string) (*contract.Console, bool) {
	return s.consoles.Get(consoleID)
}

func (s *consoleService) restore(ctx context.Context, console *contract.Console) {
	defer console.MarkReady()
	if s.tokens == nil {
		return
	}

	if _, err := console.Store.Restore(ctx); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			s.logger.Info("CONSOLE", "Stored session expired", map[string]interface{}{"console_id": console.ID})
		case errors.Is(err, session.ErrLoginAbandoned):
			s.logger.Debug("CONSOLE", "Restore superseded", map[string]interface{}{"console_id": console.ID})
		default:
			s.logger.Warn("CONSOLE", "Failed to restore session", map[string]interface{}{"console_id": console.ID, "error": err.Error()})
		}
	}
}

// sync picks up logins and logouts that other replicas wrote to the token store.
func (s *consoleService) sync(ctx context.Context, console *contract.Console) {
	if s.tokens == nil {
		return
	}
	before := console.Store.IsAuthenticated()
	if _, err := console.Store.Sync(ctx); err != nil {
		s.logger.Warn("CONSOLE", "Failed to sync session", map[string]interface{}{"console_id": console.ID, "error": err.Error()})
		return
	}
	if after := console.Store.IsAuthenticated(); after != before {
		s.logger.Info("CONSOLE", "Session changed by another instance", map[string]interface{}{
			"console_id":    console.ID,
			"authenticated": after,
		})
	}
}

func (s *consoleService) newConsole(consoleID string) *contract.Console {
	opts := []session.Option{
		session.WithErrorHandler(func(op string, err error) {
			s.logger.Error("CONSOLE", "Session persistence failed", map[string]interface{}{
				"console_id": consoleID,
				"op":         op,
				"error":      err.Error(),
			})
		}),
	}
	if s.tokens != nil {
		opts = append(opts, session.WithPersister(s.tokens.For(consoleID)))
	}

	store := session.NewStore(s.auth, opts...)
	unsubscribe := store.Subscribe(func(evt session.Event) {
		s.announce(consoleID, evt)
	})

	return contract.NewConsole(consoleID, store, unsubscribe)
}

// announce runs inside the store's notification, so it only hands the change to the bus.
// Synced changes were announced by the instance that made them.
func (s *consoleService) announce(consoleID string, evt session.Event) {
	if s.publisher == nil || evt.Kind == session.EventSynced {
		return
	}
	msg := dto.SessionChangedMessage{
		ConsoleId:  consoleID,
		Event:      string(evt.Kind),
		Reason:     evt.Reason,
		Session:    s.mapper.ToSessionResponse(evt.Session, false),
		OccurredAt: evt.OccurredAt,
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("CONSOLE", "Failed to encode session change", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisher.Publish(context.Background(), payload); err != nil {
		s.logger.Warn("CONSOLE", "Failed to publish session change", map[string]interface{}{"console_id": consoleID, "error": err.Error()})
	}
}
