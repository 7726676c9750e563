package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/campuslink/backend/internal/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client is one realtime session. A user may hold several.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID    string
	Name      string
	SessionID string

	// Outbound queue drained by WritePump. Guarded by sendMu so a closed
	// queue is never written to.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += now.Sub(r.lastTime).Seconds() * r.refill
	r.lastTime = now
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a session for an authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, userID, name string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Name:        name,
		SessionID:   uuid.NewString(),
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// enqueue never blocks. It reports false when the queue is full or closed.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ReadPump processes inbound events in receipt order until the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Client disconnected normally", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("Read error for client", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			metrics.Get().RateLimitExceededTotal.WithLabelValues("realtime").Inc()
			c.SendError(string(apierrors.ErrRateLimited), "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Log.Warn("Realtime JSON parse error", logger.WithUserID(c.UserID), zap.Error(err))
			c.SendError(string(apierrors.ErrValidation), "Failed to parse message")
			continue
		}

		c.handleMessage(&message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				if c.ctx.Err() == nil {
					logger.Log.Warn("Write error for client", logger.WithUserID(c.UserID), zap.Error(err))
					c.hub.metrics.Errors.Add(1)
				}
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Ping failed for client", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

// handleMessage routes one event. Handler failures become an error event
// scoped to this session; the connection stays open.
func (c *Client) handleMessage(message *Message) {
	if message.Type == MessageTypePing {
		c.handlePing(message)
		metrics.Get().RealtimeEventsTotal.WithLabelValues(MessageTypePing, "ok").Inc()
		return
	}

	handler, ok := c.hub.GetHandler(message.Type)
	if !ok {
		metrics.Get().RealtimeEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		c.SendReplyError(message, string(apierrors.ErrValidation), fmt.Sprintf("Unknown message type: %s", message.Type))
		return
	}

	if err := handler(c, message); err != nil {
		metrics.Get().RealtimeEventsTotal.WithLabelValues(message.Type, "error").Inc()
		c.hub.metrics.Errors.Add(1)

		apiErr := apierrors.From(err)
		msg := apiErr.Message
		if apiErr.Code == apierrors.ErrInternalError {
			logger.ErrorWithFields("Realtime handler failed", err,
				logger.WithUserID(c.UserID),
				logger.WithSessionID(c.SessionID),
				zap.String("type", message.Type),
			)
			msg = fmt.Sprintf("Failed to process %s", message.Type)
		} else {
			logger.Log.Debug("Realtime event rejected",
				logger.WithUserID(c.UserID),
				zap.String("type", message.Type),
				zap.String("code", string(apiErr.Code)),
			)
		}
		c.SendReplyError(message, string(apiErr.Code), msg)
		return
	}
	metrics.Get().RealtimeEventsTotal.WithLabelValues(message.Type, "ok").Inc()
}

func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	var latency int64
	if ping.ClientTime > 0 {
		latency = serverTime - ping.ClientTime
	}

	_ = c.Send(NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    latency,
	}))
}

// Send queues a message for this session only.
func (c *Client) Send(message *Message) error {
	if c.IsClosed() {
		return errors.New("client connection closed")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return errors.New("send buffer full")
	}
	return nil
}

func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// SendReplyError sends an error event tied to the request that caused it.
func (c *Client) SendReplyError(original *Message, code, message string) {
	_ = c.Send(NewReply(original, MessageTypeError, ErrorPayload{Code: code, Message: message}))
}

// Context is cancelled when the session ends.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ClientInfo represents public client information
type ClientInfo struct {
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPingAt  time.Time `json:"last_ping_at"`
	RemoteAddr  string    `json:"remote_addr"`
}

func (c *Client) GetInfo() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientInfo{
		UserID:      c.UserID,
		SessionID:   c.SessionID,
		ConnectedAt: c.ConnectedAt,
		LastPingAt:  c.LastPingAt,
		RemoteAddr:  c.RemoteAddr,
	}
}
