package chat

import (
	"context"
	"strings"

	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/models"
	"gorm.io/gorm"
)

// MessageStore persists messages. Messages are never updated or deleted.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Create writes one message and returns it with the sender resolved.
// Whitespace-only content is rejected and nothing is written.
func (s *MessageStore) Create(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apierrors.ValidationError("content", "content is required")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apierrors.InternalError("failed to save message", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", senderID).First(&msg.Sender).Error; err != nil {
		return nil, apierrors.InternalError("failed to load sender", err)
	}
	return msg, nil
}

// ListForConversation returns every message oldest first.
func (s *MessageStore) ListForConversation(ctx context.Context, conversationID string) ([]*dto.MessageResponse, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apierrors.InternalError("failed to list messages", err)
	}

	out := make([]*dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, dto.ToMessageResponse(&msgs[i]))
	}
	return out, nil
}
