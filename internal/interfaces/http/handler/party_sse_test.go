package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templeparties/backend/internal/domain/party"
)

func newConnectedClient(h *PartySSEHandler) *SSEClient {
	client := &SSEClient{
		ID:   uuid.New().String(),
		Chan: make(chan SSEMessage, 10),
		Done: make(chan struct{}),
	}
	h.clients.Store(client.ID, client)
	return client
}

func TestPartySSEHandlerEventTypes(t *testing.T) {
	h := NewPartySSEHandler()
	defer h.Stop()

	types := h.EventTypes()
	assert.Contains(t, types, party.EventPartyApproved)
	assert.Contains(t, types, party.EventPartyDeleted)
	assert.Contains(t, types, party.EventGoingChanged)
	assert.NotContains(t, types, party.EventPartySubmitted)
}

func TestPartySSEHandlerHandle(t *testing.T) {
	t.Run("broadcasts approvals to connected clients", func(t *testing.T) {
		h := NewPartySSEHandler()
		defer h.Stop()
		client := newConnectedClient(h)

		p := approvedParty(t, "Rooftop Rager", "friday", 3, uuid.New())
		event := party.NewPartyApprovedEvent(p)
		require.NoError(t, h.Handle(context.Background(), event))

		select {
		case msg := <-client.Chan:
			assert.Equal(t, party.EventPartyApproved, msg.Event)
			assert.Equal(t, event.EventID().String(), msg.ID)
			assert.Contains(t, msg.Data, p.ID.String())
			assert.Contains(t, msg.Data, `"title":"Rooftop Rager"`)
			assert.Contains(t, msg.Data, `"goingCount":3`)
		case <-time.After(time.Second):
			t.Fatal("expected a broadcast message")
		}
	})

	t.Run("broadcasts going-count changes", func(t *testing.T) {
		h := NewPartySSEHandler()
		defer h.Stop()
		client := newConnectedClient(h)

		p := approvedParty(t, "Rooftop Rager", "friday", 4, uuid.New())
		require.NoError(t, h.Handle(context.Background(), party.NewGoingChangedEvent(p)))

		select {
		case msg := <-client.Chan:
			assert.Equal(t, party.EventGoingChanged, msg.Event)
			assert.Contains(t, msg.Data, `"goingCount":4`)
		case <-time.After(time.Second):
			t.Fatal("expected a broadcast message")
		}
	})

	t.Run("ignores events that never reach the public feed", func(t *testing.T) {
		h := NewPartySSEHandler()
		defer h.Stop()
		client := newConnectedClient(h)

		p := pendingHandlerParty(t, uuid.New())
		require.NoError(t, h.Handle(context.Background(), party.NewPartySubmittedEvent(p)))

		select {
		case msg := <-client.Chan:
			t.Fatalf("unexpected broadcast: %+v", msg)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("drops messages for a slow client without blocking", func(t *testing.T) {
		h := NewPartySSEHandler()
		defer h.Stop()

		client := &SSEClient{
			ID:   uuid.New().String(),
			Chan: make(chan SSEMessage), // unbuffered, nobody reading
			Done: make(chan struct{}),
		}
		h.clients.Store(client.ID, client)

		p := approvedParty(t, "Rooftop Rager", "friday", 0, uuid.New())
		done := make(chan struct{})
		go func() {
			_ = h.Handle(context.Background(), party.NewPartyApprovedEvent(p))
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("broadcast blocked on a slow client")
		}
	})
}

func TestPartySSEHandlerStreamDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewPartySSEHandler()
	defer h.Stop()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	reqCtx, cancel := context.WithCancel(context.Background())
	c.Request = httptest.NewRequest("GET", "/api/v1/parties/stream", nil).WithContext(reqCtx)

	streamDone := make(chan struct{})
	go func() {
		h.Stream(c)
		close(streamDone)
	}()

	// Grab the registered client the way a concurrent broadcast sees it
	var client *SSEClient
	require.Eventually(t, func() bool {
		h.clients.Range(func(_, value any) bool {
			client, _ = value.(*SSEClient)
			return false
		})
		return client != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-streamDone:
	case <-time.After(time.Second):
		t.Fatal("stream did not exit on disconnect")
	}

	assert.Equal(t, 0, h.GetClientCount())
	assert.Contains(t, w.Body.String(), "event: connected")

	// A heartbeat that raced the disconnect still holds the stale client
	// reference. Sending to its channel must not panic.
	assert.NotPanics(t, func() {
		select {
		case client.Chan <- SSEMessage{Event: "heartbeat", Data: `{"timestamp":0}`}:
		default:
		}
	})
}

func TestPartySSEHandlerClientCount(t *testing.T) {
	h := NewPartySSEHandler()
	defer h.Stop()

	assert.Equal(t, 0, h.GetClientCount())
	newConnectedClient(h)
	newConnectedClient(h)
	assert.Equal(t, 2, h.GetClientCount())
}
