package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sendTimeout bounds one send-message round trip through the store.
const sendTimeout = 10 * time.Second

// MessageSender persists and fans out a chat message.
type MessageSender interface {
	Send(ctx context.Context, senderID, conversationID, content string) (*dto.MessageResponse, error)
}

// MembershipChecker gates join-room.
type MembershipChecker interface {
	RequireMember(ctx context.Context, conversationID, userID string) error
}

// Handler upgrades HTTP requests into realtime sessions and owns the
// event handlers for the chat protocol.
type Handler struct {
	hub            *Hub
	verifier       auth.Verifier
	sender         MessageSender
	members        MembershipChecker
	allowedOrigins []string
}

func NewHandler(hub *Hub, verifier auth.Verifier, sender MessageSender, members MembershipChecker, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		verifier:       verifier,
		sender:         sender,
		members:        members,
		allowedOrigins: allowedOrigins,
	}
}

// HandleWebSocket authenticates before upgrading. The token comes from
// the Authorization header or the token query parameter, since browsers
// cannot set headers on a websocket handshake.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := tokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   string(apierrors.ErrUnauthorized),
			"message": "no authentication token provided",
		})
		return
	}

	user, err := h.verifier.ValidateToken(c.Request.Context(), token)
	if err != nil {
		logger.Log.Debug("Realtime auth failed", zap.Error(err))
		apiErr := apierrors.From(err)
		c.JSON(apiErr.Status, gin.H{
			"error":   string(apiErr.Code),
			"message": apiErr.Message,
		})
		return
	}

	conn, err := websocket.Accept(upgradeWriter(c), c.Request, h.acceptOptions())
	if err != nil {
		logger.WarnWithFields("Realtime upgrade failed", err, logger.WithUserID(user.ID))
		return
	}

	// Access logs should report the upgrade, not gin's default 200.
	c.Status(http.StatusSwitchingProtocols)

	client := NewClient(h.hub, conn, user.ID, user.Name)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

// upgradeWriter returns the net/http writer beneath gin's. Accept writes
// the 101 status before hijacking, and gin refuses to hijack a response it
// has already seen written.
func upgradeWriter(c *gin.Context) http.ResponseWriter {
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return c.Writer
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	for _, origin := range h.allowedOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
	}
	for _, origin := range h.allowedOrigins {
		origin = strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		opts.OriginPatterns = append(opts.OriginPatterns, origin)
	}
	return opts
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}

// RegisterChatHandlers wires the chat protocol events into the hub.
func (h *Handler) RegisterChatHandlers() {
	h.hub.RegisterHandler(MessageTypeSetup, h.handleSetup)
	h.hub.RegisterHandler(MessageTypeJoinRoom, h.handleJoinRoom)
	h.hub.RegisterHandler(MessageTypeLeaveRoom, h.handleLeaveRoom)
	h.hub.RegisterHandler(MessageTypeSendMessage, h.handleSendMessage)
}

// handleSetup subscribes the session to the user's personal room. Any
// identity in the payload is ignored in favour of the authenticated one.
func (h *Handler) handleSetup(client *Client, msg *Message) error {
	if err := h.hub.JoinRoom(client, userRoom(client.UserID)); err != nil {
		return apierrors.InternalError("failed to join personal room", err)
	}
	return client.Send(NewReply(msg, MessageTypeConnected, ConnectedPayload{
		UserID:     client.UserID,
		Name:       client.Name,
		SessionID:  client.SessionID,
		ServerTime: time.Now().UTC().UnixMilli(),
	}))
}

func (h *Handler) handleJoinRoom(client *Client, msg *Message) error {
	room, err := parseRoom(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(client.Context(), sendTimeout)
	defer cancel()
	if err := h.members.RequireMember(ctx, room.ConversationID, client.UserID); err != nil {
		return err
	}

	if err := h.hub.JoinRoom(client, conversationRoom(room.ConversationID)); err != nil {
		return apierrors.InternalError("failed to join room", err)
	}
	return client.Send(NewReply(msg, MessageTypeRoomJoined, room))
}

func (h *Handler) handleLeaveRoom(client *Client, msg *Message) error {
	room, err := parseRoom(msg)
	if err != nil {
		return err
	}
	h.hub.LeaveRoom(client, conversationRoom(room.ConversationID))
	return client.Send(NewReply(msg, MessageTypeRoomLeft, room))
}

// handleSendMessage always uses the session's user as sender. The store
// call outlives a disconnect so an accepted message is never half written.
func (h *Handler) handleSendMessage(client *Client, msg *Message) error {
	var payload SendMessagePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return apierrors.ValidationError("payload", "invalid send-message payload")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(client.Context()), sendTimeout)
	defer cancel()

	_, err := h.sender.Send(ctx, client.UserID, payload.ConversationID, payload.Content)
	return err
}

func parseRoom(msg *Message) (RoomPayload, error) {
	var room RoomPayload
	if err := msg.ParsePayload(&room); err != nil {
		return room, apierrors.ValidationError("payload", "invalid room payload")
	}
	room.ConversationID = strings.TrimSpace(room.ConversationID)
	if room.ConversationID == "" {
		return room, apierrors.ValidationError("conversation_id", "conversation id is required")
	}
	return room, nil
}

// HandleMetrics returns realtime counters for monitoring, plus the
// caller's own open sessions.
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":     h.hub.GetMetrics(),
		"online_users":  len(h.hub.GetOnlineUsers()),
		"your_sessions": h.hub.SessionsFor(c.GetString("user_id")),
		"timestamp":     time.Now().UTC(),
	})
}

// Shutdown closes every session.
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}
