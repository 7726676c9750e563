package dto

import (
	"time"

	"github.com/campuslink/backend/internal/models"
)

// UserRef is the display form of a user embedded in chat and feed payloads.
// It never carries credentials.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func ToUserRef(user *models.User) UserRef {
	if user == nil {
		return UserRef{}
	}
	return UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
}

// UserResponse is the public profile representation.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Branch    string    `json:"branch,omitempty"`
	Year      int       `json:"year,omitempty"`
	Interests []string  `json:"interests"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUserResponse(user *models.User) *UserResponse {
	interests := []string(user.Interests)
	if interests == nil {
		interests = []string{}
	}
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Branch:    user.Branch,
		Year:      user.Year,
		Interests: interests,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}

func ToUserResponses(users []models.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}
