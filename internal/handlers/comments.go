package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxCommentLength = 2000

// CreateComment adds a comment with the classifier's spam verdict. An
// unreachable classifier leaves the comment unflagged and unchecked.
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	var req dto.CreateCommentRequest
	if !util.BindJSON(c, &req) {
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		util.RespondValidationError(c, "text", "comment text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		util.RespondValidationError(c, "text", fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
		return
	}

	verdict := h.spam.Classify(c.Request.Context(), text)

	comment := &models.Comment{
		PostID:      postID,
		AuthorID:    userID,
		Text:        text,
		Spam:        verdict.Spam,
		SpamScore:   verdict.Score,
		SpamLabel:   verdict.Label,
		SpamChecked: verdict.Checked,
	}
	if err := h.posts.CreateComment(c.Request.Context(), comment); err != nil {
		util.RespondError(c, repoError(err, "create comment"))
		return
	}

	if comment.Spam {
		logger.Log.Info("Comment flagged as spam",
			logger.WithUserID(userID),
			logger.WithPostID(postID),
			zap.Float64("score", comment.SpamScore),
		)
	}

	c.JSON(http.StatusCreated, dto.ToCommentResponse(comment))
}

// GetComments lists a post's comments oldest first. Spam is shown only to
// the comment's author.
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	comments, err := h.posts.ListComments(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		util.RespondError(c, repoError(err, "list comments"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentResponses(comments),
		"count":    len(comments),
	})
}
