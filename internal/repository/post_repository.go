package repository

import (
	"context"
	"errors"

	"github.com/campuslink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPostNotFound = errors.New("post not found")

// ReactionCounts is a post's tally after a reaction changed.
type ReactionCounts struct {
	Likes    int
	Dislikes int
}

// PostRepository persists posts, their reactions and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	// GetPosts keeps the order of postIDs and skips unknown IDs.
	GetPosts(ctx context.Context, postIDs []string) ([]models.Post, error)
	// DeletePost removes the post with its reactions and comments and
	// returns the removed row.
	DeletePost(ctx context.Context, postID string) (*models.Post, error)

	React(ctx context.Context, postID, userID, kind string) (ReactionCounts, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns comments oldest first. Spam is only visible to
	// the comment's author.
	ListComments(ctx context.Context, postID, viewerID string) ([]models.Comment, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.AuthorID == "" {
		return ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", post.AuthorID).First(&post.Author).Error
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	return &post, err
}

func (r *postRepository) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).Preload("Author").Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, err
}

func (r *postRepository) GetPosts(ctx context.Context, postIDs []string) ([]models.Post, error) {
	if len(postIDs) == 0 {
		return []models.Post{}, nil
	}

	var found []models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Where("id IN ?", postIDs).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(found))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (r *postRepository) DeletePost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// React records kind as userID's only reaction to the post. Switching
// replaces the previous reaction; repeating it changes nothing. Counts are
// recomputed from the reaction rows inside the same transaction.
func (r *postRepository) React(ctx context.Context, postID, userID, kind string) (ReactionCounts, error) {
	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return ReactionCounts{}, ErrInvalidInput
	}

	var counts ReactionCounts
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrPostNotFound
		}

		reaction := models.PostReaction{PostID: postID, UserID: userID, Kind: kind}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind"}),
		}).Create(&reaction).Error
		if err != nil {
			return err
		}

		var rows []struct {
			Kind  string
			Total int
		}
		err = tx.Model(&models.PostReaction{}).
			Select("kind, COUNT(*) AS total").
			Where("post_id = ?", postID).
			Group("kind").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			switch row.Kind {
			case models.ReactionLike:
				counts.Likes = row.Total
			case models.ReactionDislike:
				counts.Dislikes = row.Total
			}
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
			"like_count":    counts.Likes,
			"dislike_count": counts.Dislikes,
		}).Error
	})
	return counts, err
}

func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.PostID == "" || comment.AuthorID == "" {
		return ErrInvalidInput
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrPostNotFound
	}

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", comment.AuthorID).First(&comment.Author).Error
}

func (r *postRepository) ListComments(ctx context.Context, postID, viewerID string) ([]models.Comment, error) {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrPostNotFound
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Where("spam = ? OR author_id = ?", false, viewerID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}
