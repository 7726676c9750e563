package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is either a direct chat between exactly two users or a named
// group with an admin. IsGroup never changes after creation.
type Conversation struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Name    string `gorm:"not null;default:''" json:"name"`
	IsGroup bool   `gorm:"not null;default:false" json:"is_group"`

	// DirectKey is "<lowID>:<highID>" for direct chats and NULL for groups.
	// The unique index keeps concurrent first contacts from creating two
	// conversations for one pair.
	DirectKey *string `gorm:"size:80;uniqueIndex" json:"-"`

	AdminID *string `gorm:"size:36;index" json:"admin_id,omitempty"`
	Admin   *User   `gorm:"foreignKey:AdminID" json:"-"`

	// LatestMessageID is a lookup pointer only; no constraint ties it to messages.
	LatestMessageID *string `gorm:"size:36" json:"latest_message_id,omitempty"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// ConversationMember is one row of a conversation's member set.
type ConversationMember struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_member" json:"conversation_id"`
	UserID         string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_member;index" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *ConversationMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateOrderedUUID()
	}
	return nil
}

// Message is immutable once written.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"size:36;not null;index" json:"sender_id"`
	Sender         User      `gorm:"foreignKey:SenderID" json:"-"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateOrderedUUID()
	}
	return nil
}
