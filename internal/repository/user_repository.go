package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/campuslink/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid input")
)

// UserRepository handles all database operations for users
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsers returns the users with the given IDs in the order the IDs
	// were passed. Unknown IDs are skipped.
	GetUsers(ctx context.Context, userIDs []string) ([]models.User, error)
	ListExcept(ctx context.Context, userID string) ([]models.User, error)

	// SimilarTo ranks other users by shared branch and interests, newest
	// accounts first on ties.
	SimilarTo(ctx context.Context, user *models.User, limit int) ([]models.User, error)

	GetTotalUserCount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

// GetUserByEmail gets a user by email, case insensitively
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidInput
	}

	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}

	var found []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	ordered := make([]models.User, 0, len(found))
	for _, id := range userIDs {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// ListExcept returns every user but userID, newest first
func (r *userRepository) ListExcept(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("id <> ?", userID).
		Order("created_at DESC, id ASC").
		Find(&users).Error
	return users, err
}

// SimilarTo scores in memory: interests are stored as a serialized list so
// overlap cannot be expressed portably across postgres and sqlite.
func (r *userRepository) SimilarTo(ctx context.Context, user *models.User, limit int) ([]models.User, error) {
	if user == nil {
		return nil, ErrInvalidInput
	}

	candidates, err := r.ListExcept(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	score := func(u *models.User) int {
		s := 0
		if user.Branch != "" && strings.EqualFold(u.Branch, user.Branch) {
			s += 2
		}
		for _, interest := range u.Interests {
			if user.Interests.Contains(interest) {
				s++
			}
		}
		return s
	}

	scores := make(map[string]int, len(candidates))
	for i := range candidates {
		scores[candidates[i].ID] = score(&candidates[i])
	}
	// Stable so equal scores keep the newest-first order from ListExcept.
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i].ID] > scores[candidates[j].ID]
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// GetTotalUserCount gets total user count
func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Count(&count).Error

	return count, err
}
