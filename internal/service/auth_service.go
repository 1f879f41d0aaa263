package service

import (
	"context"
	"time"

	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/mapper"
	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/pkg/guard"
	"intelligencehub-console/pkg/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("intelligencehub-console/service")

type IAuthService interface {
	Login(ctx context.Context, consoleID string, req *dto.LoginRequest, next string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, consoleID string) (*dto.SessionResponse, error)
	Expire(ctx context.Context, consoleID string, req *dto.ExpireRequest) (*dto.SessionResponse, error)
	Session(ctx context.Context, consoleID string) (*dto.SessionResponse, error)
	// Snapshot reads an open console from memory; an unknown console is signed out.
	Snapshot(consoleID string) dto.SessionResponse
}

type authService struct {
	consoles     IConsoleService
	table        *guard.Table
	loginTimeout time.Duration
	mapper       *mapper.SessionMapper
	logger       logger.ILogger
}

func NewAuthService(consoles IConsoleService, table *guard.Table, loginTimeout time.Duration, log logger.ILogger) IAuthService {
	return &authService{
		consoles:     consoles,
		table:        table,
		loginTimeout: loginTimeout,
		mapper:       mapper.NewSessionMapper(),
		logger:       log,
	}
}

func (s *authService) Login(ctx context.Context, consoleID string, req *dto.LoginRequest, next string) (*dto.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()
	span.SetAttributes(attribute.String("console.id", consoleID))

	store := s.consoles.Open(ctx, consoleID).Store

	if s.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loginTimeout)
		defer cancel()
	}

	snap, err := store.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.Warn("AUTH", "Login failed", map[string]interface{}{
			"console_id": consoleID,
			"username":   req.Username,
			"kind":       session.KindOf(err).String(),
			"error":      err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, session.KindOf(err).String())
		return nil, err
	}
	span.SetAttributes(attribute.String("user.role", snap.User.Role))

	s.logger.Info("AUTH", "Login succeeded", map[string]interface{}{
		"console_id": consoleID,
		"user_id":    snap.User.ID,
		"role":       snap.User.Role,
	})

	return &dto.LoginResponse{
		Session:  s.mapper.ToSessionResponse(snap, false),
		Redirect: s.afterLogin(snap, next),
	}, nil
}

// afterLogin sends the user back to the page that bounced them to login, when the
// guard lets the new session see it, and home otherwise.
func (s *authService) afterLogin(snap session.Session, next string) string {
	if next == "" {
		return s.table.HomePath()
	}
	d := s.table.Decide(snap, next)
	if d.Allowed() {
		return d.Path
	}
	return s.table.HomePath()
}

func (s *authService) Logout(ctx context.Context, consoleID string) (*dto.SessionResponse, error) {
	console := s.consoles.Open(ctx, consoleID)
	console.Store.Logout()

	s.logger.Info("AUTH", "Logout", map[string]interface{}{"console_id": consoleID})

	res := s.mapper.ToSessionResponse(console.Store.Snapshot(), console.Store.LoginPending())
	return &res, nil
}

func (s *authService) Expire(ctx context.Context, consoleID string, req *dto.ExpireRequest) (*dto.SessionResponse, error) {
	console := s.consoles.Open(ctx, consoleID)

	reason := req.Reason
	if reason == "" {
		reason = session.MsgSessionExpired
	}
	if console.Store.ExpireToken(req.Token, reason) {
		s.logger.Info("AUTH", "Session expired by screen report", map[string]interface{}{"console_id": consoleID, "reason": reason})
	} else {
		s.logger.Debug("AUTH", "Ignored stale expiry report", map[string]interface{}{"console_id": consoleID})
	}

	res := s.mapper.ToSessionResponse(console.Store.Snapshot(), console.Store.LoginPending())
	return &res, nil
}

func (s *authService) Session(ctx context.Context, consoleID string) (*dto.SessionResponse, error) {
	console := s.consoles.Open(ctx, consoleID)
	res := s.mapper.ToSessionResponse(console.Store.Snapshot(), console.Store.LoginPending())
	return &res, nil
}

func (s *authService) Snapshot(consoleID string) dto.SessionResponse {
	console, ok := s.consoles.Lookup(consoleID)
	if !ok {
		return s.mapper.ToSessionResponse(session.Session{}, false)
	}
	return s.mapper.ToSessionResponse(console.Store.Snapshot(), console.Store.LoginPending())
}
