package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campuslink/backend/internal/cache"
	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/middleware"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	feedCacheTTL            = 60 * time.Second
	feedCacheName           = "feed"
	defaultFeedLimit        = 50
	maxFeedLimit            = 100
	feedSourceRanked        = "recommended"
	feedSourceChronological = "chronological"
)

func feedCacheKey(userID string) string {
	return "feed:posts:" + userID
}

// GetFeed returns posts in recommended order, falling back to newest first
// when the recommender has nothing for the caller
// GET /api/v1/posts/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	limit := util.ParseInt(c.Query("limit"), defaultFeedLimit)
	if limit <= 0 || limit > maxFeedLimit {
		limit = defaultFeedLimit
	}

	ids := h.rankedPostIDs(ctx, userID)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	if len(ids) > 0 {
		posts, err := h.posts.GetPosts(ctx, ids)
		if err != nil {
			logger.WarnWithFields("Failed to load ranked posts", err, logger.WithUserID(userID))
		} else if len(posts) > 0 {
			c.JSON(http.StatusOK, gin.H{
				"posts":  dto.ToPostResponses(posts),
				"source": feedSourceRanked,
			})
			return
		}
	}

	posts, err := h.posts.ListPosts(ctx, limit)
	if err != nil {
		util.RespondError(c, repoError(err, "load feed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":  dto.ToPostResponses(posts),
		"source": feedSourceChronological,
	})
}

// rankedPostIDs consults the cache before the recommender. Only non-empty
// rankings are cached so a recovering recommender is picked up quickly.
func (h *Handlers) rankedPostIDs(ctx context.Context, userID string) []string {
	key := feedCacheKey(userID)

	if h.feedCache != nil {
		data, err := h.feedCache.Get(ctx, key)
		switch {
		case err == nil:
			var ids []string
			if jsonErr := json.Unmarshal(data, &ids); jsonErr == nil {
				middleware.RecordCacheHit(feedCacheName)
				return ids
			}
			middleware.RecordCacheMiss(feedCacheName)
		case errors.Is(err, cache.ErrMiss):
			middleware.RecordCacheMiss(feedCacheName)
		default:
			logger.Log.Debug("Feed cache unavailable", zap.Error(err))
		}
	}

	ids := h.ranker.RankPosts(ctx, userID)
	if len(ids) == 0 || h.feedCache == nil {
		return ids
	}

	if data, err := json.Marshal(ids); err == nil {
		if err := h.feedCache.SetEx(ctx, key, data, feedCacheTTL); err != nil {
			logger.Log.Debug("Failed to cache feed", zap.Error(err))
		}
	}
	return ids
}
