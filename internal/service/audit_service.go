package service

import (
	"context"
	"fmt"

	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/pkg/events"
	pktNats "intelligencehub-console/pkg/nats"
)

const auditDurable = "console-session-audit"

// EventSubscriber is implemented by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

// AuditService records every session transition of every console instance in the audit log.
type AuditService struct {
	subscriber EventSubscriber
	auditLog   logger.ILogger
	logger     logger.ILogger
}

func NewAuditService(sub EventSubscriber, auditLog logger.ILogger, log logger.ILogger) *AuditService {
	return &AuditService{
		subscriber: sub,
		auditLog:   auditLog,
		logger:     log,
	}
}

// Start begins listening to the session subjects.
func (s *AuditService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, events.SessionSubjects, auditDurable, s.HandleEvent); err != nil {
		s.logger.Error("AUDIT", "Failed to start audit subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("AUDIT", fmt.Sprintf("Audit service started, listening to %s", events.SessionSubjects), nil)
	return nil
}

func (s *AuditService) HandleEvent(ctx context.Context, event events.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["event"] = event.EventType()

	switch event.EventType() {
	case events.SessionLogin, events.SessionRestored, events.SessionLogout:
		s.auditLog.Info("AUDIT", event.EventType(), details)
	case events.SessionExpired:
		s.auditLog.Warn("AUDIT", event.EventType(), details)
	default:
		s.logger.Debug("AUDIT", "Ignoring unknown event", map[string]interface{}{"type": event.EventType()})
	}
	return nil
}
