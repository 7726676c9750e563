package handlers

import (
	"net/http"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateDirectConversation finds or creates the caller's direct
// conversation with a peer
// POST /api/v1/conversations
func (h *Handlers) CreateDirectConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.CreateDirectRequest
	if !util.BindJSON(c, &req) {
		return
	}

	conv, err := h.conversations.FindOrCreateDirect(c.Request.Context(), userID, req.PeerUserID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// CreateGroupConversation creates a group with the caller as admin
// POST /api/v1/conversations/group
func (h *Handlers) CreateGroupConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if !util.BindJSON(c, &req) {
		return
	}

	conv, err := h.conversations.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// ListConversations returns the caller's conversations, most recently
// active first
// GET /api/v1/conversations
func (h *Handlers) ListConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	convs, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"count":         len(convs),
	})
}

// GET /api/v1/conversations/:id
func (h *Handlers) GetConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	conv, err := h.conversations.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// PUT /api/v1/conversations/:id/rename
func (h *Handlers) RenameConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.RenameRequest
	if !util.BindJSON(c, &req) {
		return
	}

	conv, err := h.conversations.Rename(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// AddMember adds a user to a group. Admin only.
// PUT /api/v1/conversations/:id/members/add
func (h *Handlers) AddMember(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.MemberRequest
	if !util.BindJSON(c, &req) {
		return
	}

	members, err := h.membership.AddMember(c.Request.Context(), userID, c.Param("id"), req.UserID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// RemoveMember removes a user from a group. Removing someone else is
// admin only; removing yourself is a leave.
// PUT /api/v1/conversations/:id/members/remove
func (h *Handlers) RemoveMember(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.MemberRequest
	if !util.BindJSON(c, &req) {
		return
	}

	members, err := h.membership.RemoveMember(c.Request.Context(), userID, c.Param("id"), req.UserID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// POST /api/v1/conversations/:id/leave
func (h *Handlers) LeaveConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	members, err := h.membership.Leave(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// GET /api/v1/conversations/:id/members
func (h *Handlers) ListMembers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	members, err := h.membership.ListMembers(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}
