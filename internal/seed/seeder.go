// Package seed fills a development database with fake campus users,
// conversations, posts and comments.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Seeder handles database seeding operations
type Seeder struct {
	db            *gorm.DB
	conversations *chat.ConversationStore
	coordinator   *chat.Coordinator
	posts         repository.PostRepository
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Conversations int
	Messages      int
	Posts         int
	Comments      int
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d conversations=%d messages=%d posts=%d comments=%d",
		s.Users, s.Conversations, s.Messages, s.Posts, s.Comments)
}

// NewSeeder creates a new seeder instance. Messages go through the normal
// send pipeline so latest-message pointers come out right.
func NewSeeder(db *gorm.DB, conversations *chat.ConversationStore, coordinator *chat.Coordinator, posts repository.PostRepository) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:            db,
		conversations: conversations,
		coordinator:   coordinator,
		posts:         posts,
	}
}

// SeedDev creates userCount users, one direct conversation, one group and
// a handful of posts with comments. At least three users are needed for
// the group.
func (s *Seeder) SeedDev(ctx context.Context, userCount int) (Summary, error) {
	var sum Summary
	if userCount < 3 {
		return sum, fmt.Errorf("need at least 3 users, got %d", userCount)
	}

	logger.Log.Info("Creating users...", zap.Int("count", userCount))
	users, err := s.seedUsers(ctx, userCount)
	if err != nil {
		return sum, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	logger.Log.Info("Creating conversations...")
	direct, err := s.conversations.FindOrCreateDirect(ctx, users[0].ID, users[1].ID)
	if err != nil {
		return sum, fmt.Errorf("failed to seed direct conversation: %w", err)
	}
	sum.Conversations++

	groupSize := min(len(users), 6)
	var invitees []string
	for _, u := range users[1:groupSize] {
		invitees = append(invitees, u.ID)
	}
	group, err := s.conversations.CreateGroup(ctx, users[0].ID, fmt.Sprintf("%s study group", gofakeit.Word()), invitees)
	if err != nil {
		return sum, fmt.Errorf("failed to seed group: %w", err)
	}
	sum.Conversations++

	n, err := s.seedMessages(ctx, direct.ID, []string{users[0].ID, users[1].ID}, 6)
	sum.Messages += n
	if err != nil {
		return sum, err
	}
	groupMembers := append([]string{users[0].ID}, invitees...)
	n, err = s.seedMessages(ctx, group.ID, groupMembers, 10)
	sum.Messages += n
	if err != nil {
		return sum, err
	}

	logger.Log.Info("Creating posts...")
	posts, comments, err := s.seedPosts(ctx, users, userCount)
	sum.Posts, sum.Comments = posts, comments
	if err != nil {
		return sum, err
	}

	logger.Log.Info("Seeding complete", zap.Stringer("summary", sum))
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	stamp := time.Now().Unix()
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			Name: gofakeit.Name(),
			// The suffix keeps reruns from colliding on the unique email.
			Email:        fmt.Sprintf("%s.%d.%d@campus.test", strings.ToLower(gofakeit.Username()), stamp, i),
			PasswordHash: string(hashed),
			Branch:       models.Branches[gofakeit.Number(0, len(models.Branches)-1)],
			Year:         gofakeit.Number(1, 4),
			Interests:    pickInterests(gofakeit.Number(1, 3)),
			AvatarURL:    gofakeit.ImageURL(256, 256),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func pickInterests(n int) models.StringArray {
	picked := models.StringArray{}
	for len(picked) < n {
		interest := models.Interests[gofakeit.Number(0, len(models.Interests)-1)]
		if !picked.Contains(interest) {
			picked = append(picked, interest)
		}
	}
	return picked
}

func (s *Seeder) seedMessages(ctx context.Context, conversationID string, senders []string, count int) (int, error) {
	for i := 0; i < count; i++ {
		sender := senders[i%len(senders)]
		if _, err := s.coordinator.Send(ctx, sender, conversationID, gofakeit.Sentence(gofakeit.Number(3, 12))); err != nil {
			return i, fmt.Errorf("failed to seed message: %w", err)
		}
	}
	return count, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, count int) (posts, comments int, err error) {
	for i := 0; i < count; i++ {
		author := users[i%len(users)]
		post := &models.Post{
			AuthorID:    author.ID,
			Title:       gofakeit.Sentence(gofakeit.Number(3, 6)),
			Description: gofakeit.Sentence(gofakeit.Number(10, 25)),
			Category:    models.StringArray{gofakeit.Word()},
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			return posts, comments, fmt.Errorf("failed to seed post: %w", err)
		}
		posts++

		replies := gofakeit.Number(0, 3)
		for j := 0; j < replies; j++ {
			commenter := users[gofakeit.Number(0, len(users)-1)]
			comment := &models.Comment{
				PostID:   post.ID,
				AuthorID: commenter.ID,
				Text:     gofakeit.Sentence(gofakeit.Number(4, 15)),
			}
			if err := s.posts.CreateComment(ctx, comment); err != nil {
				return posts, comments, fmt.Errorf("failed to seed comment: %w", err)
			}
			comments++
		}
	}
	return posts, comments, nil
}
