package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"

	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Post is a feed item with optional media.
type Post struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	AuthorID    string      `gorm:"size:36;not null;index" json:"author_id"`
	Author      User        `gorm:"foreignKey:AuthorID" json:"-"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Category    StringArray `gorm:"type:text" json:"category"`
	MediaURL    string      `json:"media_url,omitempty"`
	MediaType   string      `gorm:"size:8" json:"media_type,omitempty"`

	LikeCount    int `gorm:"not null;default:0" json:"like_count"`
	DislikeCount int `gorm:"not null;default:0" json:"dislike_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// PostReaction records one user's like or dislike. A user holds at most one
// reaction per post.
type PostReaction struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_reaction_user" json:"post_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_reaction_user" json:"user_id"`
	Kind      string    `gorm:"size:8;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *PostReaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// Comment carries the spam verdict captured when it was written.
type Comment struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	PostID   string `gorm:"size:36;not null;index" json:"post_id"`
	AuthorID string `gorm:"size:36;not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"-"`
	Text     string `gorm:"type:text;not null" json:"text"`

	Spam        bool    `gorm:"not null;default:false" json:"spam"`
	SpamScore   float64 `gorm:"not null;default:0" json:"spam_score"`
	SpamLabel   string  `gorm:"size:32" json:"spam_label,omitempty"`
	SpamChecked bool    `gorm:"not null;default:false" json:"spam_checked"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateOrderedUUID()
	}
	return nil
}
