// Package websocket is the realtime channel: authenticated sessions,
// rooms, and ordered fan-out of chat events.
// Uses github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"go.uber.org/zap"
)

// Hub tracks sessions and rooms. Room state is process local and rebuilt
// by clients after reconnecting.
type Hub struct {
	// Sessions by user ID. One user may hold several.
	clients map[string]map[*Client]struct{}

	allClients map[*Client]struct{}

	// Room name -> member sessions, and the reverse index per session.
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}

	// Deliveries are fanned out by Run in enqueue order.
	deliver chan *roomDelivery

	mu sync.RWMutex

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	handlers map[string]MessageHandler

	rateLimitConfig RateLimitConfig
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines per-session inbound limits.
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

type roomDelivery struct {
	rooms   []string
	message *Message

	// audience, when set, limits delivery to these users. Sessions left in
	// scopedRoom by users outside it are evicted from that room.
	audience   map[string]struct{}
	scopedRoom string
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		rooms:           make(map[string]map[*Client]struct{}),
		clientRooms:     make(map[*Client]map[string]struct{}),
		deliver:         make(chan *roomDelivery, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run fans out deliveries until Shutdown.
func (h *Hub) Run() {
	logger.Log.Info("Realtime hub starting")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case d := <-h.deliver:
			h.deliverToRooms(d)
		}
	}
}

// Register adds a session. It is synchronous so the session can join rooms
// as soon as its first event arrives.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		client.closeSend()
		return
	}

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}
	h.clientRooms[client] = make(map[string]struct{})

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().RealtimeSessions.Inc()

	logger.Log.Info("Client connected",
		logger.WithUserID(client.UserID),
		logger.WithSessionID(client.SessionID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

// Unregister removes a session from every room and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)

	if sessions, ok := h.clients[client.UserID]; ok {
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	for room := range h.clientRooms[client] {
		h.removeFromRoomLocked(client, room)
	}
	delete(h.clientRooms, client)

	client.closeSend()

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().RealtimeSessions.Dec()

	logger.Log.Info("Client disconnected",
		logger.WithUserID(client.UserID),
		logger.WithSessionID(client.SessionID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()),
	)
}

// JoinRoom subscribes a registered session to room.
func (h *Hub) JoinRoom(client *Client, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clientRooms[client]
	if !ok {
		return fmt.Errorf("session is not registered")
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	joined[room] = struct{}{}
	return nil
}

// LeaveRoom unsubscribes a session. Leaving a room never joined is a no-op.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client, room)
	if joined, ok := h.clientRooms[client]; ok {
		delete(joined, room)
	}
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether the session has joined room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][client]
	return ok
}

// BroadcastMessage queues a new-message event for the conversation room
// and every member's personal room. memberIDs is the membership at persist
// time; a session of anyone else still sitting in the conversation room
// (removed or departed since joining) gets nothing and is evicted.
func (h *Hub) BroadcastMessage(conversationID string, memberIDs []string, msg *dto.MessageResponse) {
	room := conversationRoom(conversationID)
	rooms := make([]string, 0, len(memberIDs)+1)
	rooms = append(rooms, room)
	audience := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		rooms = append(rooms, userRoom(id))
		audience[id] = struct{}{}
	}
	h.enqueue(&roomDelivery{
		rooms:      rooms,
		message:    NewMessage(MessageTypeNewMessage, msg),
		audience:   audience,
		scopedRoom: room,
	})
}

func (h *Hub) enqueue(d *roomDelivery) {
	select {
	case h.deliver <- d:
	case <-h.ctx.Done():
	}
}

// deliverToRooms writes one copy per session even when a session sits in
// several of the target rooms.
func (h *Hub) deliverToRooms(d *roomDelivery) {
	data, err := json.Marshal(d.message)
	if err != nil {
		logger.ErrorWithFields("Failed to marshal realtime event", err)
		return
	}

	h.mu.RLock()
	targets := make(map[*Client]struct{})
	var outsiders []*Client
	for _, room := range d.rooms {
		for client := range h.rooms[room] {
			if d.audience != nil {
				if _, ok := d.audience[client.UserID]; !ok {
					outsiders = append(outsiders, client)
					continue
				}
			}
			targets[client] = struct{}{}
		}
	}
	var slow []*Client
	for client := range targets {
		if client.enqueue(data) {
			h.metrics.MessagesSent.Add(1)
			metrics.Get().RealtimeDeliveryTotal.WithLabelValues("delivered").Inc()
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range outsiders {
		h.LeaveRoom(client, d.scopedRoom)
		logger.Log.Debug("Evicted non-member from conversation room",
			logger.WithUserID(client.UserID),
			logger.WithSessionID(client.SessionID),
			zap.String("room", d.scopedRoom),
		)
	}

	// A session that cannot keep up is dropped; the client pages history
	// after reconnecting.
	for _, client := range slow {
		h.metrics.ConnectionsDropped.Add(1)
		metrics.Get().RealtimeDeliveryTotal.WithLabelValues("dropped").Inc()
		logger.Log.Warn("Dropping slow realtime session",
			logger.WithUserID(client.UserID),
			logger.WithSessionID(client.SessionID),
		)
		h.Unregister(client)
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SessionsFor describes every open session of a user.
func (h *Hub) SessionsFor(userID string) []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]ClientInfo, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		sessions = append(sessions, client.GetInfo())
	}
	return sessions
}

// GetOnlineUsers returns a list of all online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the hub and closes every session.
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Realtime hub shutting down")
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))
	count := len(h.allClients)
	for client := range h.allClients {
		client.enqueue(data)
		client.closeSend()
	}

	h.clients = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[string]struct{})

	h.metrics.ActiveConnections.Store(0)
	metrics.Get().RealtimeSessions.Sub(float64(count))

	logger.Log.Info("Closed realtime sessions", zap.Int("sessions", count))
}

// SetRateLimitConfig applies to sessions registered afterwards.
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
