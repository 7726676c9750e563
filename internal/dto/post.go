package dto

import (
	"time"

	"github.com/campuslink/backend/internal/models"
)

type PostResponse struct {
	ID           string    `json:"id"`
	Author       UserRef   `json:"author"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     []string  `json:"category"`
	MediaURL     string    `json:"media_url,omitempty"`
	MediaType    string    `json:"media_type,omitempty"`
	LikeCount    int       `json:"like_count"`
	DislikeCount int       `json:"dislike_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToPostResponse(post *models.Post) *PostResponse {
	category := []string(post.Category)
	if category == nil {
		category = []string{}
	}
	return &PostResponse{
		ID:           post.ID,
		Author:       ToUserRef(&post.Author),
		Title:        post.Title,
		Description:  post.Description,
		Category:     category,
		MediaURL:     post.MediaURL,
		MediaType:    post.MediaType,
		LikeCount:    post.LikeCount,
		DislikeCount: post.DislikeCount,
		CreatedAt:    post.CreatedAt,
	}
}

func ToPostResponses(posts []models.Post) []*PostResponse {
	out := make([]*PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ToPostResponse(&posts[i]))
	}
	return out
}

// ReactionResponse reports counts after a like or dislike.
type ReactionResponse struct {
	PostID       string `json:"post_id"`
	Reaction     string `json:"reaction"`
	LikeCount    int    `json:"like_count"`
	DislikeCount int    `json:"dislike_count"`
}

type CommentResponse struct {
	ID          string    `json:"id"`
	PostID      string    `json:"post_id"`
	Author      UserRef   `json:"author"`
	Text        string    `json:"text"`
	Spam        bool      `json:"spam"`
	SpamScore   float64   `json:"spam_score"`
	SpamLabel   string    `json:"spam_label,omitempty"`
	SpamChecked bool      `json:"spam_checked"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToCommentResponse(c *models.Comment) *CommentResponse {
	return &CommentResponse{
		ID:          c.ID,
		PostID:      c.PostID,
		Author:      ToUserRef(&c.Author),
		Text:        c.Text,
		Spam:        c.Spam,
		SpamScore:   c.SpamScore,
		SpamLabel:   c.SpamLabel,
		SpamChecked: c.SpamChecked,
		CreatedAt:   c.CreatedAt,
	}
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

func ToCommentResponses(comments []models.Comment) []*CommentResponse {
	out := make([]*CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, ToCommentResponse(&comments[i]))
	}
	return out
}
