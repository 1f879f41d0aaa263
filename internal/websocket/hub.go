package websocket

import (
	"context"
	"encoding/json"

	"intelligencehub-console/internal/dto"
	"intelligencehub-console/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "console_events"

// Message is the frame sent to browser tabs.
type Message struct {
	Type   string              `json:"type"`
	Event  string              `json:"event,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Data   dto.SessionResponse `json:"data"`
}

type clusterEnvelope struct {
	Origin          string          `json:"origin"`
	TargetConsoleID string          `json:"target_console_id"`
	Message         json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: console id -> open tabs
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}

	// Redis connection for cross-instance delivery, optional
	rdb *redis.Client
	// instanceID tags what this hub publishes so it can skip its own echoes
	instanceID string

	logger logger.ILogger
}

type delivery struct {
	consoleID string
	data      []byte
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns the client map until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, id)
			}
			return

		case client := <-h.register:
			h.clients[client.ConsoleID] = append(h.clients[client.ConsoleID], client)
			if client.snapshot != nil {
				h.sendSnapshot(client, client.snapshot())
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"console_id": client.ConsoleID, "client_id": client.ID})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			// remove edits the slice, so range over a copy
			tabs := append([]*Client(nil), h.clients[d.consoleID]...)
			for _, client := range tabs {
				select {
				case client.Send <- d.data:
				default:
					h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"console_id": d.consoleID, "client_id": client.ID})
					h.remove(client)
				}
			}
		}
	}
}

// join and leave are what connections use; they give up once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.ConsoleID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.ConsoleID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.ConsoleID]) == 0 {
		delete(h.clients, client.ConsoleID)
		h.logger.Info("Hub", "Console has no open tabs", map[string]interface{}{"console_id": client.ConsoleID})
	}
}

// SendToConsole implements service.SessionDelivery.
func (h *Hub) SendToConsole(consoleID string, msg dto.SessionChangedMessage) {
	data, err := json.Marshal(Message{
		Type:   "session",
		Event:  msg.Event,
		Reason: msg.Reason,
		Data:   msg.Session,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode session message", map[string]interface{}{"error": err.Error()})
		return
	}

	h.local(consoleID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterEnvelope{
			Origin:          h.instanceID,
			TargetConsoleID: consoleID,
			Message:         data,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

// sendSnapshot runs on the hub loop, ahead of any delivery queued after registration.
func (h *Hub) sendSnapshot(client *Client, res dto.SessionResponse) {
	data, err := json.Marshal(Message{Type: "session", Event: "snapshot", Data: res})
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func (h *Hub) local(consoleID string, data []byte) {
	select {
	case h.deliver <- delivery{consoleID: consoleID, data: data}:
	default:
		h.logger.Warn("Hub", "Delivery queue full, dropping session message", map[string]interface{}{"console_id": consoleID})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	// Every instance subscribes to one channel and keeps only messages for consoles it
	// has tabs for.
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			h.local(env.TargetConsoleID, env.Message)
		}
	}
}
