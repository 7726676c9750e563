package repository

import (
	"context"
	"testing"

	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetUsersKeepsOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "Ada")
	b := testutil.CreateUser(t, db, "Bo")
	c := testutil.CreateUser(t, db, "Cy")

	users, err := repo.GetUsers(ctx, []string{c.ID, "missing", a.ID, c.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{users[0].ID, users[1].ID, users[2].ID})
}

func TestUserRepository_GetUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "Ada")

	got, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	byEmail, err := repo.GetUserByEmail(ctx, "  "+u.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetUser(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserRepository_ListExcept(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)

	me := testutil.CreateUser(t, db, "Me")
	testutil.CreateUser(t, db, "Other 1")
	testutil.CreateUser(t, db, "Other 2")

	users, err := repo.ListExcept(context.Background(), me.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, me.ID, u.ID)
	}
}

func TestUserRepository_SimilarTo(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)

	me := testutil.CreateUser(t, db, "Me")
	me.Branch = "ECE"
	me.Interests = models.StringArray{"music", "gaming"}
	require.NoError(t, db.Save(me).Error)

	stranger := testutil.CreateUser(t, db, "Stranger")
	stranger.Branch = "ME"
	stranger.Interests = models.StringArray{"travel"}
	require.NoError(t, db.Save(stranger).Error)

	classmate := testutil.CreateUser(t, db, "Classmate")
	classmate.Branch = "ECE"
	classmate.Interests = models.StringArray{"music", "gaming"}
	require.NoError(t, db.Save(classmate).Error)

	bandmate := testutil.CreateUser(t, db, "Bandmate")
	bandmate.Branch = "CE"
	bandmate.Interests = models.StringArray{"music"}
	require.NoError(t, db.Save(bandmate).Error)

	users, err := repo.SimilarTo(context.Background(), me, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, classmate.ID, users[0].ID)
	assert.Equal(t, bandmate.ID, users[1].ID)
}

func newPost(t *testing.T, repo PostRepository, authorID, title string) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: authorID, Title: title, Category: models.StringArray{"events"}}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "Author")

	post := newPost(t, repo, author.ID, "Hackathon")
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "Author", post.Author.Name)

	got, err := repo.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", got.Title)
	assert.Equal(t, []string{"events"}, []string(got.Category))

	_, err = repo.GetPost(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepository_GetPostsKeepsOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "Author")

	p1 := newPost(t, repo, author.ID, "one")
	p2 := newPost(t, repo, author.ID, "two")

	posts, err := repo.GetPosts(context.Background(), []string{p2.ID, "gone", p1.ID})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p2.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)
}

func TestPostRepository_ReactionsAreExclusive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	fan := testutil.CreateUser(t, db, "Fan")
	critic := testutil.CreateUser(t, db, "Critic")
	post := newPost(t, repo, author.ID, "Poll")

	counts, err := repo.React(ctx, post.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, ReactionCounts{Likes: 1}, counts)

	// Repeating is a no-op.
	counts, err = repo.React(ctx, post.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, ReactionCounts{Likes: 1}, counts)

	counts, err = repo.React(ctx, post.ID, critic.ID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, ReactionCounts{Likes: 1, Dislikes: 1}, counts)

	// Switching replaces the earlier reaction.
	counts, err = repo.React(ctx, post.ID, fan.ID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, ReactionCounts{Likes: 0, Dislikes: 2}, counts)

	stored, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LikeCount)
	assert.Equal(t, 2, stored.DislikeCount)

	_, err = repo.React(ctx, "missing", fan.ID, models.ReactionLike)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = repo.React(ctx, post.ID, fan.ID, "love")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPostRepository_CommentsHideSpamFromOthers(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	spammer := testutil.CreateUser(t, db, "Spammer")
	post := newPost(t, repo, author.ID, "Notes")

	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "first"}))
	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: spammer.ID, Text: "buy now", Spam: true, SpamChecked: true}))
	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "second"}))

	visible, err := repo.ListComments(ctx, post.ID, author.ID)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "first", visible[0].Text)
	assert.Equal(t, "second", visible[1].Text)

	own, err := repo.ListComments(ctx, post.ID, spammer.ID)
	require.NoError(t, err)
	assert.Len(t, own, 3)

	err = repo.CreateComment(ctx, &models.Comment{PostID: "missing", AuthorID: author.ID, Text: "x"})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRepository_DeleteRemovesDependents(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author")
	post := newPost(t, repo, author.ID, "Temp")

	_, err := repo.React(ctx, post.ID, author.ID, models.ReactionLike)
	require.NoError(t, err)
	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "bye"}))

	deleted, err := repo.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.ID)

	var reactions, comments int64
	db.Model(&models.PostReaction{}).Where("post_id = ?", post.ID).Count(&reactions)
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	assert.Zero(t, reactions)
	assert.Zero(t, comments)

	_, err = repo.DeletePost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
