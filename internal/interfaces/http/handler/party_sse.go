package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID     string
	UserID string
	Chan   chan SSEMessage
	Done   chan struct{}
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// partyStreamPayload is the wire shape pushed for every party change
type partyStreamPayload struct {
	PartyID    uuid.UUID `json:"partyId"`
	Title      string    `json:"title,omitempty"`
	Day        string    `json:"day,omitempty"`
	GoingCount *int      `json:"goingCount,omitempty"`
}

// PartySSEHandler streams feed changes to connected clients over
// Server-Sent Events. It subscribes to the event bus for approvals,
// deletions and going-count changes so the feed can update live.
type PartySSEHandler struct {
	BaseHandler
	logger     *zap.Logger
	clients    sync.Map // map[string]*SSEClient
	ctx        context.Context
	cancel     context.CancelFunc
	heartbeat  time.Duration
	maxClients int
}

// PartySSEOption is a functional option for configuring the handler
type PartySSEOption func(*PartySSEHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) PartySSEOption {
	return func(h *PartySSEHandler) {
		h.logger = logger
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) PartySSEOption {
	return func(h *PartySSEHandler) {
		h.heartbeat = interval
	}
}

// WithSSEMaxClients sets the maximum number of concurrent SSE clients
func WithSSEMaxClients(max int) PartySSEOption {
	return func(h *PartySSEHandler) {
		h.maxClients = max
	}
}

// NewPartySSEHandler creates a new SSE handler for feed updates
func NewPartySSEHandler(opts ...PartySSEOption) *PartySSEHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &PartySSEHandler{
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		heartbeat:  30 * time.Second,
		maxClients: 10000,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Start begins sending heartbeats to connected clients
func (h *PartySSEHandler) Start() {
	go h.sendHeartbeats()
	h.logger.Info("Party SSE handler started")
}

// Stop disconnects all clients and stops the handler
func (h *PartySSEHandler) Stop() {
	h.cancel()

	h.clients.Range(func(key, value any) bool {
		if client, ok := value.(*SSEClient); ok {
			close(client.Done)
		}
		return true
	})

	h.logger.Info("Party SSE handler stopped")
}

// EventTypes implements shared.EventHandler. Only changes visible on
// the public feed are streamed; submissions and rejections stay
// private to moderation.
func (h *PartySSEHandler) EventTypes() []string {
	return []string{
		party.EventPartyApproved,
		party.EventPartyDeleted,
		party.EventGoingChanged,
	}
}

// Handle implements shared.EventHandler and fans the event out to all
// connected clients
func (h *PartySSEHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload := h.eventToPayload(event)
	if payload == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal SSE event", zap.Error(err))
		return err
	}

	h.broadcast(SSEMessage{
		Event: event.EventType(),
		Data:  string(data),
		ID:    event.EventID().String(),
	})
	return nil
}

// eventToPayload converts a domain event to the wire payload
func (h *PartySSEHandler) eventToPayload(event shared.DomainEvent) *partyStreamPayload {
	switch e := event.(type) {
	case *party.PartyApprovedEvent:
		count := e.GoingCount
		return &partyStreamPayload{
			PartyID:    e.AggregateID(),
			Title:      e.Title,
			Day:        string(e.Day),
			GoingCount: &count,
		}
	case *party.PartyDeletedEvent:
		return &partyStreamPayload{
			PartyID: e.AggregateID(),
			Title:   e.Title,
			Day:     string(e.Day),
		}
	case *party.GoingChangedEvent:
		count := e.GoingCount
		return &partyStreamPayload{
			PartyID:    e.AggregateID(),
			Day:        string(e.Day),
			GoingCount: &count,
		}
	default:
		return nil
	}
}

// broadcast sends a message to all connected clients
func (h *PartySSEHandler) broadcast(msg SSEMessage) {
	h.clients.Range(func(key, value any) bool {
		client, ok := value.(*SSEClient)
		if !ok {
			return true
		}

		select {
		case client.Chan <- msg:
			h.logger.Debug("Sent SSE message to client",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		default:
			// Channel full, client might be slow
			h.logger.Warn("Client channel full, dropping message",
				zap.String("client_id", client.ID))
		}
		return true
	})
}

// sendHeartbeats periodically sends heartbeat messages to keep connections alive
func (h *PartySSEHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// Stream establishes a Server-Sent Events connection for live feed
// updates. The stream is public; a bearer token only tags the
// connection with a user ID for logging.
func (h *PartySSEHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.GetClientCount() >= h.maxClients {
		c.JSON(503, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MAX_CONNECTIONS_REACHED",
				"message": "Maximum number of SSE connections reached",
			},
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	userID := middleware.GetJWTUserID(c)

	// Buffer size allows messages to queue without blocking broadcast
	const sseMessageBufferSize = 100
	client := &SSEClient{
		ID:     uuid.New().String(),
		UserID: userID,
		Chan:   make(chan SSEMessage, sseMessageBufferSize),
		Done:   make(chan struct{}),
	}

	h.clients.Store(client.ID, client)
	// Chan is never closed: the heartbeat goroutine may be mid-broadcast
	// when the client disconnects. Removing the registry entry is enough;
	// the channel is collected once the broadcast loses its reference.
	defer h.clients.Delete(client.ID)

	h.logger.Info("SSE client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID))

	h.sendEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"clientId":"%s","timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	c.Writer.Flush()

	reqCtx := c.Request.Context()

	for {
		select {
		case <-reqCtx.Done():
			h.logger.Info("SSE client disconnected (request context done)",
				zap.String("client_id", client.ID))
			return
		case <-client.Done:
			h.logger.Info("SSE client disconnected (done signal)",
				zap.String("client_id", client.ID))
			return
		case <-h.ctx.Done():
			h.logger.Info("SSE handler stopped, disconnecting client",
				zap.String("client_id", client.ID))
			return
		case msg := <-client.Chan:
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *PartySSEHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// GetClientCount returns the number of connected SSE clients
func (h *PartySSEHandler) GetClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

var _ shared.EventHandler = (*PartySSEHandler)(nil)
