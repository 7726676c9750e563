package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray stores a short list of tokens as "{a,b,c}" in a text column.
// Values must not contain commas.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimSuffix(strings.TrimPrefix(str, "{"), "}")
	if str == "" {
		*a = []string{}
		return nil
	}
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Contains reports whether v is one of the entries.
func (a StringArray) Contains(v string) bool {
	for _, s := range a {
		if s == v {
			return true
		}
	}
	return false
}

// Branches and interests accepted at registration.
var (
	Branches  = []string{"CSE", "CS", "IT", "ECE", "EN", "ME", "CE", "CSE-AIML", "CSE-DS", "CS-IT", "AIML", "MCA"}
	Interests = []string{"coding", "design", "music", "sports", "photography", "gaming", "reading", "travel", "art", "dance", "robotics", "entrepreneurship"}
)

// User is a campus account. Chat only ever exposes id, name and email.
type User struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	Name         string      `gorm:"not null" json:"name"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"type:text;not null" json:"-"`
	Branch       string      `gorm:"size:16" json:"branch,omitempty"`
	Year         int         `json:"year,omitempty"`
	Interests    StringArray `gorm:"type:text" json:"interests"`
	AvatarURL    string      `json:"avatar_url,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}

// generateOrderedUUID returns a time-ordered id so rows created later sort
// after earlier ones even when timestamps collide.
func generateOrderedUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return generateUUID()
	}
	return id.String()
}
