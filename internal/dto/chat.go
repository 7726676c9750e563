package dto

import (
	"time"

	"github.com/campuslink/backend/internal/models"
)

// MessageResponse is a message with its sender resolved.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         UserRef   `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToMessageResponse(msg *models.Message) *MessageResponse {
	return &MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         ToUserRef(&msg.Sender),
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

// ConversationResponse is a conversation with members and latest message resolved.
type ConversationResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	IsGroup       bool             `json:"is_group"`
	Members       []UserRef        `json:"members"`
	Admin         *UserRef         `json:"admin,omitempty"`
	LatestMessage *MessageResponse `json:"latest_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ToConversationResponse expects Members[].User and Admin to be loaded.
func ToConversationResponse(conv *models.Conversation, latest *models.Message) *ConversationResponse {
	resp := &ConversationResponse{
		ID:        conv.ID,
		Name:      conv.Name,
		IsGroup:   conv.IsGroup,
		Members:   memberRefs(conv.Members),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	if conv.Admin != nil {
		admin := ToUserRef(conv.Admin)
		resp.Admin = &admin
	}
	if latest != nil {
		resp.LatestMessage = ToMessageResponse(latest)
	}
	return resp
}

// MembersResponse answers the member listing.
type MembersResponse struct {
	Name    string    `json:"name"`
	IsGroup bool      `json:"is_group"`
	Members []UserRef `json:"members"`
	Admin   *UserRef  `json:"admin,omitempty"`
}

func ToMembersResponse(conv *models.Conversation) *MembersResponse {
	resp := &MembersResponse{
		Name:    conv.Name,
		IsGroup: conv.IsGroup,
		Members: memberRefs(conv.Members),
	}
	if conv.Admin != nil {
		admin := ToUserRef(conv.Admin)
		resp.Admin = &admin
	}
	return resp
}

func memberRefs(members []models.ConversationMember) []UserRef {
	refs := make([]UserRef, 0, len(members))
	for i := range members {
		refs = append(refs, ToUserRef(&members[i].User))
	}
	return refs
}

type CreateDirectRequest struct {
	PeerUserID string `json:"peer_user_id"`
}

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type MemberRequest struct {
	UserID string `json:"user_id"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}
