package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventOrderUpdated EventType = "order.updated"
	EventOrderDeleted EventType = "order.deleted"
	EventCacheCleared EventType = "cache.cleared"
)

// OrderEvent is the payload broadcast to console SSE clients.
type OrderEvent struct {
	Event     EventType     `json:"event"`
	OrderID   int           `json:"orderId,omitempty"`
	Order     *models.Order `json:"order,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Client is one open event stream. Events is closed when the stream is
// unregistered or its session ends.
type Client struct {
	ID     string
	Token  string
	Events chan []byte
}

// Hub fans order events out to the event streams of signed-in consoles.
// Streams are grouped by session token so a session's streams end with it.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[string]map[string]struct{}
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Register opens a stream for clientID on behalf of the session token.
func (h *Hub) Register(clientID, token string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{ID: clientID, Token: token, Events: make(chan []byte, 64)}
	h.clients[clientID] = c
	if h.sessions[token] == nil {
		h.sessions[token] = make(map[string]struct{})
	}
	h.sessions[token][clientID] = struct{}{}

	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister closes the stream of clientID. Unknown ids are ignored.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.drop(clientID) {
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// DisconnectSession closes every stream opened with token.
func (h *Hub) DisconnectSession(token string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id := range h.sessions[token] {
		if h.drop(id) {
			n++
		}
	}
	if n > 0 {
		log.Info().Int("streams", n).Int("total_clients", len(h.clients)).Msg("SSE session disconnected")
	}
	return n
}

// CloseInactive disconnects the streams of every session for which active
// reports false.
func (h *Hub) CloseInactive(ctx context.Context, active func(ctx context.Context, token string) bool) int {
	h.mu.RLock()
	tokens := make([]string, 0, len(h.sessions))
	for token := range h.sessions {
		tokens = append(tokens, token)
	}
	h.mu.RUnlock()

	n := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			break
		}
		if !active(ctx, token) {
			n += h.DisconnectSession(token)
		}
	}
	return n
}

// drop removes clientID and closes its channel. Caller holds mu.
func (h *Hub) drop(clientID string) bool {
	c, ok := h.clients[clientID]
	if !ok {
		return false
	}
	close(c.Events)
	delete(h.clients, clientID)
	if ids := h.sessions[c.Token]; ids != nil {
		delete(ids, clientID)
		if len(ids) == 0 {
			delete(h.sessions, c.Token)
		}
	}
	return true
}

// Broadcast sends an event to every open stream. A stream whose buffer is
// full misses the event. Nothing is encoded while no stream is open.
func (h *Hub) Broadcast(event *OrderEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Event)).Msg("Failed to marshal SSE event")
		return
	}
	for _, c := range h.clients {
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Str("event", string(event.Event)).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of open streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionCount returns the number of sessions with at least one open stream.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
