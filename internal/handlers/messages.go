package handlers

import (
	"net/http"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// SendMessage persists a message and pushes it to connected members. The
// sender is always the authenticated caller.
// POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !util.BindJSON(c, &req) {
		return
	}

	msg, err := h.coordinator.Send(c.Request.Context(), userID, req.ConversationID, req.Content)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns a conversation's messages oldest first
// GET /api/v1/messages/:conversationId
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	msgs, err := h.coordinator.History(c.Request.Context(), userID, c.Param("conversationId"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"count":    len(msgs),
	})
}
