package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/chat"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/moderation"
	"github.com/campuslink/backend/internal/recommendations"
	"github.com/campuslink/backend/internal/repository"
	"github.com/campuslink/backend/internal/storage"
)

// FeedCache holds ranked feed IDs between requests. *cache.RedisClient
// satisfies it.
type FeedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          auth.AuthServiceInterface
	users         repository.UserRepository
	posts         repository.PostRepository
	conversations *chat.ConversationStore
	membership    *chat.MembershipManager
	coordinator   *chat.Coordinator

	uploader  storage.MediaUploader
	spam      moderation.Classifier
	ranker    recommendations.Ranker
	feedCache FeedCache
}

// NewHandlers wires the required stores. Optional collaborators default to
// no-ops and are replaced through the setters.
func NewHandlers(
	authService auth.AuthServiceInterface,
	users repository.UserRepository,
	posts repository.PostRepository,
	conversations *chat.ConversationStore,
	membership *chat.MembershipManager,
	coordinator *chat.Coordinator,
) *Handlers {
	return &Handlers{
		auth:          authService,
		users:         users,
		posts:         posts,
		conversations: conversations,
		membership:    membership,
		coordinator:   coordinator,
		spam:          moderation.NopClassifier{},
		ranker:        recommendations.NopRanker{},
	}
}

// SetMediaUploader enables media on posts.
func (h *Handlers) SetMediaUploader(uploader storage.MediaUploader) {
	h.uploader = uploader
}

// SetSpamClassifier sets the comment spam classifier
func (h *Handlers) SetSpamClassifier(classifier moderation.Classifier) {
	h.spam = classifier
}

// SetRanker sets the recommendation client used by the feed and user suggestions
func (h *Handlers) SetRanker(ranker recommendations.Ranker) {
	h.ranker = ranker
}

// SetFeedCache caches ranked feeds
func (h *Handlers) SetFeedCache(cache FeedCache) {
	h.feedCache = cache
}

// repoError maps repository sentinels onto the error taxonomy.
func repoError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound("user")
	case errors.Is(err, repository.ErrPostNotFound):
		return apierrors.NotFound("post")
	case errors.Is(err, repository.ErrInvalidInput):
		return apierrors.ValidationError("", "invalid input")
	default:
		return apierrors.InternalError("failed to "+action, err)
	}
}
