// Package chat owns conversations, their member sets and their messages,
// and the pipeline that persists a message and fans it out to connected
// sessions.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const directPlaceholderName = "direct"

// ConversationStore persists direct and group conversations.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// directKey is order independent so (a,b) and (b,a) collide on the unique index.
func directKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, id ASC").Preload("User")
		}).
		Preload("Admin")
}

// load fetches a conversation with members and admin resolved.
func (s *ConversationStore) load(ctx context.Context, db *gorm.DB, conversationID string) (*models.Conversation, error) {
	if conversationID == "" {
		return nil, apierrors.ValidationError("conversation_id", "conversation id is required")
	}
	var conv models.Conversation
	err := withMembers(db.WithContext(ctx)).Where("id = ?", conversationID).First(&conv).Error
	if database.IsNotFound(err) {
		return nil, apierrors.NotFound("conversation")
	} else if err != nil {
		return nil, apierrors.InternalError("failed to load conversation", err)
	}
	return &conv, nil
}

func (s *ConversationStore) findByDirectKey(ctx context.Context, key string) (*models.Conversation, error) {
	var conv models.Conversation
	err := withMembers(s.db.WithContext(ctx)).Where("direct_key = ?", key).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// view resolves the latest message pointer and renders the conversation.
func (s *ConversationStore) view(ctx context.Context, conv *models.Conversation) (*dto.ConversationResponse, error) {
	views, err := s.views(ctx, []models.Conversation{*conv})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *ConversationStore) views(ctx context.Context, convs []models.Conversation) ([]*dto.ConversationResponse, error) {
	var latestIDs []string
	for i := range convs {
		if convs[i].LatestMessageID != nil {
			latestIDs = append(latestIDs, *convs[i].LatestMessageID)
		}
	}

	latest := make(map[string]*models.Message, len(latestIDs))
	if len(latestIDs) > 0 {
		var msgs []models.Message
		if err := s.db.WithContext(ctx).Preload("Sender").Where("id IN ?", latestIDs).Find(&msgs).Error; err != nil {
			return nil, apierrors.InternalError("failed to load latest messages", err)
		}
		for i := range msgs {
			latest[msgs[i].ID] = &msgs[i]
		}
	}

	out := make([]*dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		var msg *models.Message
		if convs[i].LatestMessageID != nil {
			// A dangling pointer simply renders without a latest message.
			msg = latest[*convs[i].LatestMessageID]
		}
		out = append(out, dto.ToConversationResponse(&convs[i], msg))
	}
	return out, nil
}

func (s *ConversationStore) userExists(ctx context.Context, db *gorm.DB, userID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// FindOrCreateDirect returns the one direct conversation between userID and
// peerID, creating it on first contact. Concurrent first contacts for the
// same pair converge on a single row through the direct_key unique index.
func (s *ConversationStore) FindOrCreateDirect(ctx context.Context, userID, peerID string) (*dto.ConversationResponse, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, apierrors.ValidationError("peer_user_id", "peer user id is required")
	}
	if peerID == userID {
		return nil, apierrors.ValidationError("peer_user_id", "cannot start a conversation with yourself")
	}

	key := directKey(userID, peerID)
	conv, err := s.findByDirectKey(ctx, key)
	if err == nil {
		return s.view(ctx, conv)
	} else if !database.IsNotFound(err) {
		return nil, apierrors.InternalError("failed to look up conversation", err)
	}

	exists, err := s.userExists(ctx, s.db, peerID)
	if err != nil {
		return nil, apierrors.InternalError("failed to look up user", err)
	}
	if !exists {
		return nil, apierrors.NotFound("user")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created := &models.Conversation{
			Name:      directPlaceholderName,
			IsGroup:   false,
			DirectKey: &key,
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		members := []models.ConversationMember{
			{ConversationID: created.ID, UserID: userID},
			{ConversationID: created.ID, UserID: peerID},
		}
		return tx.Create(&members).Error
	})
	if err != nil && !database.IsDuplicateKey(err) {
		return nil, apierrors.InternalError("failed to create conversation", err)
	}
	if err != nil {
		logger.Log.Debug("Direct conversation created concurrently, reusing",
			logger.WithUserID(userID), zap.String("peer_id", peerID))
	}

	// Read back by key either way so both racers return the winning row.
	conv, err = s.findByDirectKey(ctx, key)
	if err != nil {
		return nil, apierrors.InternalError("failed to load conversation", err)
	}
	return s.view(ctx, conv)
}

// CreateGroup creates a named group. creatorID becomes admin and is added
// after the invitees.
func (s *ConversationStore) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*dto.ConversationResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.ValidationError("name", "group name is required")
	}

	seen := map[string]bool{creatorID: true}
	invitees := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		invitees = append(invitees, id)
	}
	if len(invitees) < 2 {
		return nil, apierrors.ValidationError("member_ids", "a group needs at least 2 other members")
	}

	var found int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", invitees).Count(&found).Error; err != nil {
		return nil, apierrors.InternalError("failed to look up users", err)
	}
	if int(found) != len(invitees) {
		return nil, apierrors.NotFound("user")
	}

	var convID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := &models.Conversation{
			Name:    name,
			IsGroup: true,
			AdminID: &creatorID,
		}
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		convID = conv.ID

		members := make([]models.ConversationMember, 0, len(invitees)+1)
		for _, id := range append(invitees, creatorID) {
			members = append(members, models.ConversationMember{ConversationID: conv.ID, UserID: id})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, apierrors.InternalError("failed to create group", err)
	}

	logger.Log.Info("Group created",
		logger.WithUserID(creatorID),
		logger.WithConversationID(convID),
		zap.Int("members", len(invitees)+1),
	)

	conv, err := s.load(ctx, s.db, convID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, conv)
}

// ListForUser returns userID's conversations, most recently active first.
func (s *ConversationStore) ListForUser(ctx context.Context, userID string) ([]*dto.ConversationResponse, error) {
	var convs []models.Conversation
	err := withMembers(s.db.WithContext(ctx)).
		Where("id IN (?)", s.db.Model(&models.ConversationMember{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("updated_at DESC, id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, apierrors.InternalError("failed to list conversations", err)
	}
	return s.views(ctx, convs)
}

// Get returns one conversation to one of its members.
func (s *ConversationStore) Get(ctx context.Context, actorID, conversationID string) (*dto.ConversationResponse, error) {
	conv, err := s.load(ctx, s.db, conversationID)
	if err != nil {
		return nil, err
	}
	if !isMember(conv, actorID) {
		return nil, apierrors.Forbidden("not a member of this conversation")
	}
	return s.view(ctx, conv)
}

// Rename changes a group's display name. Only the admin may rename.
func (s *ConversationStore) Rename(ctx context.Context, actorID, conversationID, name string) (*dto.ConversationResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.ValidationError("name", "name is required")
	}

	conv, err := s.load(ctx, s.db, conversationID)
	if err != nil {
		return nil, err
	}
	if err := requireGroupAdmin(conv, actorID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(conv).Update("name", name).Error; err != nil {
		return nil, apierrors.InternalError("failed to rename conversation", err)
	}
	conv.Name = name
	return s.view(ctx, conv)
}

// MemberIDs returns the current member ids of a conversation.
func (s *ConversationStore) MemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, apierrors.ValidationError("conversation_id", "conversation id is required")
	}
	var conv models.Conversation
	err := s.db.WithContext(ctx).Select("id").Where("id = ?", conversationID).First(&conv).Error
	if database.IsNotFound(err) {
		return nil, apierrors.NotFound("conversation")
	} else if err != nil {
		return nil, apierrors.InternalError("failed to load conversation", err)
	}

	var ids []string
	err = s.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Order("joined_at ASC, id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, apierrors.InternalError("failed to load members", err)
	}
	return ids, nil
}

// RequireMember fails with NotFound for a missing conversation and
// Forbidden when userID is not in it.
func (s *ConversationStore) RequireMember(ctx context.Context, conversationID, userID string) error {
	ids, err := s.MemberIDs(ctx, conversationID)
	if err != nil {
		return err
	}
	if !contains(ids, userID) {
		return apierrors.Forbidden("not a member of this conversation")
	}
	return nil
}

// SetLatestMessage moves the latest-message pointer and bumps activity time.
func (s *ConversationStore) SetLatestMessage(ctx context.Context, conversationID, messageID string) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("latest_message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("conversation vanished before latest message update")
	}
	return nil
}

func isMember(conv *models.Conversation, userID string) bool {
	for i := range conv.Members {
		if conv.Members[i].UserID == userID {
			return true
		}
	}
	return false
}

func requireGroupAdmin(conv *models.Conversation, actorID string) error {
	if !conv.IsGroup {
		return apierrors.ValidationError("conversation_id", "direct conversations cannot be modified")
	}
	if conv.AdminID == nil || *conv.AdminID != actorID {
		return apierrors.Forbidden("only the group admin can do that")
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
