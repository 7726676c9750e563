package handlers

import (
	"net/http"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const similarUsersLimit = 20

// GetMe returns the authenticated user's profile
// GET /api/v1/users/me
func (h *Handlers) GetMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// ListUsers returns everyone except the caller
// GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	users, err := h.users.ListExcept(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, repoError(err, "list users"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": dto.ToUserResponses(users),
		"count": len(users),
	})
}

// RecommendedUsers returns the recommender's suggestions, falling back to
// users who share the caller's branch or interests.
// GET /api/v1/users/recommended
func (h *Handlers) RecommendedUsers(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var ranked []string
	for _, id := range h.ranker.RankUsers(ctx, user.ID) {
		if id != user.ID {
			ranked = append(ranked, id)
		}
	}

	var (
		users  []models.User
		err    error
		source = "recommended"
	)
	if len(ranked) > 0 {
		users, err = h.users.GetUsers(ctx, ranked)
		if err != nil {
			logger.WarnWithFields("Failed to load recommended users", err, logger.WithUserID(user.ID))
			users = nil
		}
	}

	if len(users) == 0 {
		source = "similar"
		users, err = h.users.SimilarTo(ctx, user, similarUsersLimit)
		if err != nil {
			util.RespondError(c, repoError(err, "load suggested users"))
			return
		}
	}

	logger.Log.Debug("User suggestions served",
		logger.WithUserID(user.ID),
		zap.String("source", source),
		zap.Int("count", len(users)),
	)

	c.JSON(http.StatusOK, gin.H{
		"users":  dto.ToUserResponses(users),
		"source": source,
	})
}
