package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuslink/backend/internal/dto"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	if str == "" {
		ft.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always emits RFC3339.
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Event types on the realtime channel.
const (
	// client -> server
	MessageTypeSetup       = "setup"
	MessageTypeJoinRoom    = "join-room"
	MessageTypeLeaveRoom   = "leave-room"
	MessageTypeSendMessage = "send-message"
	MessageTypePing        = "ping"

	// server -> client
	MessageTypeConnected  = "connected"
	MessageTypeRoomJoined = "room-joined"
	MessageTypeRoomLeft   = "room-left"
	MessageTypeNewMessage = "new-message"
	MessageTypeError      = "error"
	MessageTypePong       = "pong"
	MessageTypeSystem     = "system"
)

// Message is the envelope for every event in either direction.
type Message struct {
	Type      string       `json:"type"`
	Payload   interface{}  `json:"payload,omitempty"`
	ID        string       `json:"id,omitempty"`
	ReplyTo   string       `json:"reply_to,omitempty"`
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload decodes the loosely typed payload into v.
func (m *Message) ParsePayload(v interface{}) error {
	if m.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// ConnectedPayload acknowledges setup.
type ConnectedPayload struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	SessionID  string `json:"session_id"`
	ServerTime int64  `json:"server_time"`
}

// RoomPayload is used by join-room and leave-room and their acks.
type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// SendMessagePayload carries a chat message from a client. Any sender
// field a client adds is ignored.
type SendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// NewMessagePayload is pushed for every persisted chat message.
type NewMessagePayload = dto.MessageResponse

type SystemPayload struct {
	Event   string `json:"event"`
	Message string `json:"message,omitempty"`
}

func userRoom(userID string) string {
	return "user:" + userID
}

func conversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}
