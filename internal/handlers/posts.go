package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxTitleLength = 200
	// Room for the text fields on top of the largest media file.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

// CreatePost creates a post from a multipart form with optional media
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, util.MaxMediaSize+multipartOverhead)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.RespondValidationError(c, "media", fmt.Sprintf("media must be at most %d MB", util.MaxMediaSize>>20))
			return
		}
		util.RespondValidationError(c, "body", "expected a multipart form")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		util.RespondValidationError(c, "title", "title is required")
		return
	}
	if len(title) > maxTitleLength {
		util.RespondValidationError(c, "title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
		return
	}

	post := &models.Post{
		AuthorID:    userID,
		Title:       title,
		Description: strings.TrimSpace(c.PostForm("description")),
		Category:    parseCategories(c.PostFormArray("category")),
	}

	header, err := c.FormFile("media")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		util.RespondValidationError(c, "media", "could not read media")
		return
	default:
		if !h.attachMedia(c, userID, header, post) {
			return
		}
	}

	if err := h.posts.CreatePost(ctx, post); err != nil {
		h.discardMedia(c, post.MediaURL)
		util.RespondError(c, repoError(err, "create post"))
		return
	}

	logger.Log.Info("Post created",
		logger.WithUserID(userID),
		logger.WithPostID(post.ID),
		zap.String("media_type", post.MediaType),
	)

	c.JSON(http.StatusCreated, dto.ToPostResponse(post))
}

// attachMedia validates and uploads the media file. It responds and
// returns false on failure.
func (h *Handlers) attachMedia(c *gin.Context, userID string, header *multipart.FileHeader, post *models.Post) bool {
	if header.Size > util.MaxMediaSize {
		util.RespondValidationError(c, "media", fmt.Sprintf("media must be at most %d MB", util.MaxMediaSize>>20))
		return false
	}

	contentType := header.Header.Get("Content-Type")
	mediaType, ok := util.MediaTypeFor(header.Filename, contentType)
	if !ok {
		util.RespondValidationError(c, "media", "media must be an image or a video")
		return false
	}

	if h.uploader == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("media storage"))
		return false
	}

	file, err := header.Open()
	if err != nil {
		util.RespondValidationError(c, "media", "could not read media")
		return false
	}
	defer file.Close()

	result, err := h.uploader.UploadMedia(c.Request.Context(), file, header.Size, userID, header.Filename, contentType)
	if err != nil {
		util.RespondWithAPIError(c, apierrors.Upstream("media storage", err))
		return false
	}

	post.MediaURL = result.URL
	post.MediaType = mediaType
	return true
}

// discardMedia deletes an uploaded object. Failures are only logged.
func (h *Handlers) discardMedia(c *gin.Context, mediaURL string) {
	if mediaURL == "" || h.uploader == nil {
		return
	}
	key, ok := h.uploader.KeyFromURL(mediaURL)
	if !ok {
		return
	}
	if err := h.uploader.DeleteFile(c.Request.Context(), key); err != nil {
		logger.WarnWithFields("Failed to delete media", err, zap.String("key", key))
	}
}

// parseCategories accepts repeated fields, comma separated values, or both.
func parseCategories(values []string) models.StringArray {
	out := models.StringArray{}
	seen := make(map[string]bool)
	for _, v := range values {
		for _, category := range util.ParseList(v) {
			if !seen[category] {
				seen[category] = true
				out = append(out, category)
			}
		}
	}
	return out
}

// ListPosts returns every post, newest first
// GET /api/v1/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context(), 0)
	if err != nil {
		util.RespondError(c, repoError(err, "list posts"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": dto.ToPostResponses(posts),
		"count": len(posts),
	})
}

// POST /api/v1/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	h.react(c, models.ReactionLike)
}

// POST /api/v1/posts/:id/dislike
func (h *Handlers) DislikePost(c *gin.Context) {
	h.react(c, models.ReactionDislike)
}

func (h *Handlers) react(c *gin.Context, kind string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	counts, err := h.posts.React(c.Request.Context(), postID, userID, kind)
	if err != nil {
		util.RespondError(c, repoError(err, "record reaction"))
		return
	}

	c.JSON(http.StatusOK, dto.ReactionResponse{
		PostID:       postID,
		Reaction:     kind,
		LikeCount:    counts.Likes,
		DislikeCount: counts.Dislikes,
	})
}

// DeletePost removes the caller's own post with its reactions, comments
// and media
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	postID := c.Param("id")

	post, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		util.RespondError(c, repoError(err, "load post"))
		return
	}
	if post.AuthorID != userID {
		util.RespondWithAPIError(c, apierrors.Forbidden("only the author can delete this post"))
		return
	}

	if _, err := h.posts.DeletePost(ctx, postID); err != nil {
		util.RespondError(c, repoError(err, "delete post"))
		return
	}
	h.discardMedia(c, post.MediaURL)

	logger.Log.Info("Post deleted", logger.WithUserID(userID), logger.WithPostID(postID))

	c.JSON(http.StatusOK, gin.H{
		"message": "post deleted",
		"post_id": postID,
	})
}
