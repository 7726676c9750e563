package chat

import (
	"context"
	"strings"

	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipManager mutates group member sets. Direct conversations are
// fixed at two members and reject every mutation.
type MembershipManager struct {
	db            *gorm.DB
	conversations *ConversationStore
}

func NewMembershipManager(db *gorm.DB, conversations *ConversationStore) *MembershipManager {
	return &MembershipManager{db: db, conversations: conversations}
}

// AddMember adds userID to a group. Adding an existing member is a no-op.
func (m *MembershipManager) AddMember(ctx context.Context, actorID, conversationID, userID string) (*dto.MembersResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierrors.ValidationError("user_id", "user id is required")
	}

	conv, err := m.conversations.load(ctx, m.db, conversationID)
	if err != nil {
		return nil, err
	}
	if err := requireGroupAdmin(conv, actorID); err != nil {
		return nil, err
	}

	exists, err := m.conversations.userExists(ctx, m.db, userID)
	if err != nil {
		return nil, apierrors.InternalError("failed to look up user", err)
	}
	if !exists {
		return nil, apierrors.NotFound("user")
	}

	err = m.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ConversationMember{ConversationID: conv.ID, UserID: userID}).Error
	if err != nil {
		return nil, apierrors.InternalError("failed to add member", err)
	}

	logger.Log.Info("Member added",
		logger.WithConversationID(conv.ID),
		logger.WithUserID(actorID),
		zap.String("member_id", userID),
	)
	return m.members(ctx, conv.ID)
}

// RemoveMember drops userID from a group. The admin may remove anyone and
// any member may remove themselves. Removing a non-member is a no-op.
// Groups are never dissolved here, however few members remain.
func (m *MembershipManager) RemoveMember(ctx context.Context, actorID, conversationID, userID string) (*dto.MembersResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierrors.ValidationError("user_id", "user id is required")
	}

	conv, err := m.conversations.load(ctx, m.db, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apierrors.ValidationError("conversation_id", "direct conversations cannot be modified")
	}
	if userID != actorID {
		if err := requireGroupAdmin(conv, actorID); err != nil {
			return nil, err
		}
	}

	res := m.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conv.ID, userID).
		Delete(&models.ConversationMember{})
	if res.Error != nil {
		return nil, apierrors.InternalError("failed to remove member", res.Error)
	}

	if res.RowsAffected > 0 {
		logger.Log.Info("Member removed",
			logger.WithConversationID(conv.ID),
			logger.WithUserID(actorID),
			zap.String("member_id", userID),
		)
	}
	return m.members(ctx, conv.ID)
}

// Leave removes the caller from a group.
func (m *MembershipManager) Leave(ctx context.Context, actorID, conversationID string) (*dto.MembersResponse, error) {
	return m.RemoveMember(ctx, actorID, conversationID, actorID)
}

// ListMembers returns name, members and admin to a current member.
func (m *MembershipManager) ListMembers(ctx context.Context, actorID, conversationID string) (*dto.MembersResponse, error) {
	conv, err := m.conversations.load(ctx, m.db, conversationID)
	if err != nil {
		return nil, err
	}
	if !isMember(conv, actorID) {
		return nil, apierrors.Forbidden("not a member of this conversation")
	}
	return dto.ToMembersResponse(conv), nil
}

func (m *MembershipManager) members(ctx context.Context, conversationID string) (*dto.MembersResponse, error) {
	conv, err := m.conversations.load(ctx, m.db, conversationID)
	if err != nil {
		return nil, err
	}
	return dto.ToMembersResponse(conv), nil
}
