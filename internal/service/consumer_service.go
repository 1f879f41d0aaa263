package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/pkg/logger"
	"intelligencehub-console/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionDelivery pushes a session change to the open tabs of one console.
// Implemented by the websocket hub.
type SessionDelivery interface {
	SendToConsole(consoleID string, msg dto.SessionChangedMessage)
}

// EventPublisher is the outbound event stream, implemented by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	delivery       SessionDelivery
	eventPublisher EventPublisher
	logger         logger.ILogger
}

// NewConsumerService forwards bus messages to the websocket hub and to the event stream.
// delivery and eventPublisher may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	delivery SessionDelivery,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		delivery:       delivery,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SessionChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal session change", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	if cs.delivery != nil {
		cs.delivery.SendToConsole(payload.ConsoleId, payload)
	}
	// The store waits for this ack, the event stream does not need to hold it.
	msg.Ack()

	if cs.eventPublisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := cs.eventPublisher.Publish(pubCtx, ToSessionEvent(payload)); err != nil {
		cs.logger.Warn("CONSUMER", "Failed to publish session event", map[string]interface{}{
			"console_id": payload.ConsoleId,
			"event":      payload.Event,
			"error":      err.Error(),
		})
	}
}

// ToSessionEvent maps a bus message to its stream event, leaving the token behind.
func ToSessionEvent(m dto.SessionChangedMessage) events.SessionEvent {
	evt := events.SessionEvent{
		Type:       "SESSION_" + strings.ToUpper(m.Event),
		ConsoleID:  m.ConsoleId,
		Reason:     m.Reason,
		OccurredAt: m.OccurredAt,
	}
	if m.Session.User != nil {
		evt.UserID = m.Session.User.Id
		evt.Email = m.Session.User.Email
		evt.Role = m.Session.User.Role
	}
	return evt
}
