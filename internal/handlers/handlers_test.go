package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/cache"
	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/middleware"
	"github.com/campuslink/backend/internal/models"
	"github.com/campuslink/backend/internal/moderation"
	"github.com/campuslink/backend/internal/repository"
	"github.com/campuslink/backend/internal/storage"
	"github.com/campuslink/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type fakeRanker struct {
	posts []string
	users []string
	calls int
}

func (f *fakeRanker) RankPosts(context.Context, string) []string {
	f.calls++
	return f.posts
}

func (f *fakeRanker) RankUsers(context.Context, string) []string { return f.users }

type fakeClassifier struct{}

func (fakeClassifier) Classify(_ context.Context, text string) moderation.Verdict {
	if bytes.Contains([]byte(text), []byte("buy now")) {
		return moderation.Verdict{Spam: true, Score: 0.97, Label: "spam", Checked: true}
	}
	return moderation.Verdict{Spam: false, Score: 0.02, Label: "ham", Checked: true}
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (f *fakeUploader) UploadMedia(_ context.Context, body io.Reader, size int64, userID, filename, _ string) (*storage.UploadResult, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("media/%s/%d-%s", userID, len(f.uploaded), filename)
	f.uploaded = append(f.uploaded, key)
	return &storage.UploadResult{Key: key, URL: "https://cdn.test/" + key, Size: size}, nil
}

func (f *fakeUploader) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) KeyFromURL(url string) (string, bool) {
	const prefix = "https://cdn.test/"
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return "", false
	}
	return url[len(prefix):], true
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memoryCache) SetEx(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// HandlersTestSuite drives the API through a real router, auth middleware
// and an in-memory database.
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	auth     *auth.Service
	handlers *Handlers
	router   *gin.Engine
	ranker   *fakeRanker
	uploader *fakeUploader
	cache    *memoryCache

	alice, bob, carol *models.User
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.db = testutil.NewDB(s.T())
	s.auth = auth.NewService(s.db, []byte("test-secret"), time.Hour, "")

	conversations := chat.NewConversationStore(s.db)
	messages := chat.NewMessageStore(s.db)
	membership := chat.NewMembershipManager(s.db, conversations)
	coordinator := chat.NewCoordinator(conversations, messages, nil, nil)

	s.handlers = NewHandlers(
		s.auth,
		repository.NewUserRepository(s.db),
		repository.NewPostRepository(s.db),
		conversations,
		membership,
		coordinator,
	)
	s.ranker = &fakeRanker{}
	s.uploader = &fakeUploader{}
	s.cache = &memoryCache{data: map[string][]byte{}}
	s.handlers.SetRanker(s.ranker)
	s.handlers.SetSpamClassifier(fakeClassifier{})
	s.handlers.SetMediaUploader(s.uploader)
	s.handlers.SetFeedCache(s.cache)

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	s.handlers.RegisterPublicRoutes(api)
	protected := api.Group("", middleware.Auth(s.auth))
	s.handlers.RegisterProtectedRoutes(protected)

	s.alice = testutil.CreateUser(s.T(), s.db, "Alice")
	s.bob = testutil.CreateUser(s.T(), s.db, "Bob")
	s.carol = testutil.CreateUser(s.T(), s.db, "Carol")
}

func (s *HandlersTestSuite) token(user *models.User) string {
	resp, err := s.auth.GenerateToken(user)
	s.Require().NoError(err)
	return resp.Token
}

func (s *HandlersTestSuite) do(method, path string, as *models.User, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(as))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type mediaPart struct {
	filename    string
	contentType string
	data        []byte
}

func (s *HandlersTestSuite) postForm(as *models.User, fields map[string][]string, media *mediaPart) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			s.Require().NoError(mw.WriteField(key, v))
		}
	}
	if media != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, media.filename))
		header.Set("Content-Type", media.contentType)
		part, err := mw.CreatePart(header)
		s.Require().NoError(err)
		_, err = part.Write(media.data)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(as))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (s *HandlersTestSuite) assertError(w *httptest.ResponseRecorder, status int, code string) {
	s.Equal(status, w.Code, w.Body.String())
	body := decode[errorBody](s.T(), w)
	s.Equal(code, body.Code)
}

// Accounts

func (s *HandlersTestSuite) TestRegisterAndLogin() {
	w := s.do(http.MethodPost, "/api/v1/auth/register", nil, map[string]interface{}{
		"name":      "Dana",
		"email":     "Dana@Campus.test",
		"password":  "secret1",
		"branch":    "ECE",
		"year":      3,
		"interests": []string{"music"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	registered := decode[struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}](s.T(), w)
	s.Equal("dana@campus.test", registered.User.Email)
	s.NotEmpty(registered.Token)
	s.NotContains(w.Body.String(), "password")

	dup := s.do(http.MethodPost, "/api/v1/auth/register", nil, map[string]interface{}{
		"name": "Dana 2", "email": "dana@campus.test", "password": "secret1",
	})
	s.assertError(dup, http.StatusConflict, "CONFLICT")

	login := s.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "dana@campus.test", "password": "secret1",
	})
	s.Equal(http.StatusOK, login.Code, login.Body.String())

	bad := s.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "dana@campus.test", "password": "wrong-password",
	})
	s.assertError(bad, http.StatusUnauthorized, "UNAUTHORIZED")
}

func (s *HandlersTestSuite) TestRegisterValidation() {
	w := s.do(http.MethodPost, "/api/v1/auth/register", nil, map[string]interface{}{
		"name": "Eve", "email": "eve@campus.test", "password": "123",
	})
	s.assertError(w, http.StatusBadRequest, "VALIDATION_ERROR")

	malformed := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{"))
	malformed.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, malformed)
	s.assertError(rec, http.StatusBadRequest, "VALIDATION_ERROR")
}

func (s *HandlersTestSuite) TestProtectedRoutesRequireToken() {
	w := s.do(http.MethodGet, "/api/v1/conversations", nil, nil)
	s.assertError(w, http.StatusUnauthorized, "UNAUTHORIZED")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.assertError(rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func (s *HandlersTestSuite) TestGetMeAndListUsers() {
	me := s.do(http.MethodGet, "/api/v1/users/me", s.alice, nil)
	s.Require().Equal(http.StatusOK, me.Code)
	s.Equal(s.alice.ID, decode[struct {
		ID string `json:"id"`
	}](s.T(), me).ID)

	list := s.do(http.MethodGet, "/api/v1/users", s.alice, nil)
	s.Require().Equal(http.StatusOK, list.Code)
	body := decode[struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
		Count int `json:"count"`
	}](s.T(), list)
	s.Equal(2, body.Count)
	for _, u := range body.Users {
		s.NotEqual(s.alice.ID, u.ID)
	}
}

func (s *HandlersTestSuite) TestRecommendedUsers() {
	type suggestions struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
		Source string `json:"source"`
	}

	s.ranker.users = []string{s.alice.ID, s.carol.ID}
	w := s.do(http.MethodGet, "/api/v1/users/recommended", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	ranked := decode[suggestions](s.T(), w)
	s.Equal("recommended", ranked.Source)
	s.Require().Len(ranked.Users, 1)
	s.Equal(s.carol.ID, ranked.Users[0].ID)

	s.ranker.users = nil
	w = s.do(http.MethodGet, "/api/v1/users/recommended", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	fallback := decode[suggestions](s.T(), w)
	s.Equal("similar", fallback.Source)
	s.Len(fallback.Users, 2)
}

// Conversations and messages

type conversationBody struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"is_group"`
	Members []struct {
		ID string `json:"id"`
	} `json:"members"`
	Admin *struct {
		ID string `json:"id"`
	} `json:"admin"`
	LatestMessage *struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	} `json:"latest_message"`
}

func (s *HandlersTestSuite) TestDirectConversationIsFoundOrCreated() {
	first := s.do(http.MethodPost, "/api/v1/conversations", s.alice, map[string]string{"peer_user_id": s.bob.ID})
	s.Require().Equal(http.StatusOK, first.Code, first.Body.String())
	second := s.do(http.MethodPost, "/api/v1/conversations", s.bob, map[string]string{"peer_user_id": s.alice.ID})
	s.Require().Equal(http.StatusOK, second.Code)

	a := decode[conversationBody](s.T(), first)
	b := decode[conversationBody](s.T(), second)
	s.Equal(a.ID, b.ID)
	s.False(a.IsGroup)
	s.Len(a.Members, 2)

	self := s.do(http.MethodPost, "/api/v1/conversations", s.alice, map[string]string{"peer_user_id": s.alice.ID})
	s.assertError(self, http.StatusBadRequest, "VALIDATION_ERROR")

	missing := s.do(http.MethodPost, "/api/v1/conversations", s.alice, map[string]string{"peer_user_id": "ghost"})
	s.assertError(missing, http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestGroupLifecycle() {
	dave := testutil.CreateUser(s.T(), s.db, "Dave")

	created := s.do(http.MethodPost, "/api/v1/conversations/group", s.alice, map[string]interface{}{
		"name":       "Robotics",
		"member_ids": []string{s.bob.ID, s.carol.ID},
	})
	s.Require().Equal(http.StatusCreated, created.Code, created.Body.String())
	group := decode[conversationBody](s.T(), created)
	s.True(group.IsGroup)
	s.Require().NotNil(group.Admin)
	s.Equal(s.alice.ID, group.Admin.ID)
	s.Len(group.Members, 3)
	base := "/api/v1/conversations/" + group.ID

	s.assertError(s.do(http.MethodPut, base+"/rename", s.bob, map[string]string{"name": "Hijacked"}), http.StatusForbidden, "FORBIDDEN")

	renamed := s.do(http.MethodPut, base+"/rename", s.alice, map[string]string{"name": "Robotics Club"})
	s.Require().Equal(http.StatusOK, renamed.Code)
	s.Equal("Robotics Club", decode[conversationBody](s.T(), renamed).Name)

	s.assertError(s.do(http.MethodPut, base+"/members/add", s.bob, map[string]string{"user_id": dave.ID}), http.StatusForbidden, "FORBIDDEN")

	added := s.do(http.MethodPut, base+"/members/add", s.alice, map[string]string{"user_id": dave.ID})
	s.Require().Equal(http.StatusOK, added.Code, added.Body.String())
	s.Len(decode[conversationBody](s.T(), added).Members, 4)

	removed := s.do(http.MethodPut, base+"/members/remove", s.alice, map[string]string{"user_id": dave.ID})
	s.Require().Equal(http.StatusOK, removed.Code)
	s.Len(decode[conversationBody](s.T(), removed).Members, 3)

	left := s.do(http.MethodPost, base+"/leave", s.carol, nil)
	s.Require().Equal(http.StatusOK, left.Code)

	members := s.do(http.MethodGet, base+"/members", s.bob, nil)
	s.Require().Equal(http.StatusOK, members.Code)
	s.Len(decode[conversationBody](s.T(), members).Members, 2)

	s.assertError(s.do(http.MethodGet, base+"/members", s.carol, nil), http.StatusForbidden, "FORBIDDEN")
	s.assertError(s.do(http.MethodGet, base, dave, nil), http.StatusForbidden, "FORBIDDEN")
	s.assertError(s.do(http.MethodGet, "/api/v1/conversations/missing", s.alice, nil), http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestSendAndListMessages() {
	conv := decode[conversationBody](s.T(), s.do(http.MethodPost, "/api/v1/conversations", s.alice, map[string]string{"peer_user_id": s.bob.ID}))

	sent := s.do(http.MethodPost, "/api/v1/messages", s.alice, map[string]string{
		"conversation_id": conv.ID,
		"content":         "hi bob",
		"sender_id":       s.bob.ID,
	})
	s.Require().Equal(http.StatusCreated, sent.Code, sent.Body.String())
	msg := decode[struct {
		ID     string `json:"id"`
		Sender struct {
			ID string `json:"id"`
		} `json:"sender"`
	}](s.T(), sent)
	s.Equal(s.alice.ID, msg.Sender.ID)

	reply := s.do(http.MethodPost, "/api/v1/messages", s.bob, map[string]string{"conversation_id": conv.ID, "content": "hey"})
	s.Require().Equal(http.StatusCreated, reply.Code)

	history := s.do(http.MethodGet, "/api/v1/messages/"+conv.ID, s.bob, nil)
	s.Require().Equal(http.StatusOK, history.Code)
	body := decode[struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}](s.T(), history)
	s.Require().Len(body.Messages, 2)
	s.Equal("hi bob", body.Messages[0].Content)
	s.Equal("hey", body.Messages[1].Content)

	list := s.do(http.MethodGet, "/api/v1/conversations", s.alice, nil)
	s.Require().Equal(http.StatusOK, list.Code)
	convs := decode[struct {
		Conversations []conversationBody `json:"conversations"`
	}](s.T(), list)
	s.Require().Len(convs.Conversations, 1)
	s.Require().NotNil(convs.Conversations[0].LatestMessage)
	s.Equal("hey", convs.Conversations[0].LatestMessage.Content)

	s.assertError(s.do(http.MethodGet, "/api/v1/messages/"+conv.ID, s.carol, nil), http.StatusForbidden, "FORBIDDEN")
	s.assertError(s.do(http.MethodPost, "/api/v1/messages", s.carol, map[string]string{"conversation_id": conv.ID, "content": "let me in"}), http.StatusForbidden, "FORBIDDEN")
	s.assertError(s.do(http.MethodPost, "/api/v1/messages", s.alice, map[string]string{"conversation_id": conv.ID, "content": "   "}), http.StatusBadRequest, "VALIDATION_ERROR")
	s.assertError(s.do(http.MethodPost, "/api/v1/messages", s.alice, map[string]string{"conversation_id": "missing", "content": "hello"}), http.StatusNotFound, "NOT_FOUND")
}

// Posts, feed and comments

type postBody struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     []string `json:"category"`
	MediaURL     string   `json:"media_url"`
	MediaType    string   `json:"media_type"`
	LikeCount    int      `json:"like_count"`
	DislikeCount int      `json:"dislike_count"`
}

func (s *HandlersTestSuite) createPost(as *models.User, title string) postBody {
	w := s.postForm(as, map[string][]string{"title": {title}}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[postBody](s.T(), w)
}

func (s *HandlersTestSuite) TestCreatePost() {
	w := s.postForm(s.alice, map[string][]string{
		"title":       {"Fest photos"},
		"description": {"Day one"},
		"category":    {"events,photography", "events"},
	}, &mediaPart{filename: "stage.png", contentType: "image/png", data: []byte("\x89PNG fake")})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	post := decode[postBody](s.T(), w)
	s.Equal("Fest photos", post.Title)
	s.Equal([]string{"events", "photography"}, post.Category)
	s.Equal(models.MediaTypeImage, post.MediaType)
	s.Contains(post.MediaURL, "https://cdn.test/media/"+s.alice.ID)
	s.Len(s.uploader.uploaded, 1)
}

func (s *HandlersTestSuite) TestCreatePostRejectsBadInput() {
	s.assertError(s.postForm(s.alice, map[string][]string{"description": {"no title"}}, nil), http.StatusBadRequest, "VALIDATION_ERROR")

	notMedia := s.postForm(s.alice, map[string][]string{"title": {"Notes"}},
		&mediaPart{filename: "notes.txt", contentType: "text/plain", data: []byte("hello")})
	s.assertError(notMedia, http.StatusBadRequest, "VALIDATION_ERROR")

	asJSON := s.do(http.MethodPost, "/api/v1/posts", s.alice, map[string]string{"title": "json"})
	s.assertError(asJSON, http.StatusBadRequest, "VALIDATION_ERROR")

	s.handlers.SetMediaUploader(nil)
	unavailable := s.postForm(s.alice, map[string][]string{"title": {"Clip"}},
		&mediaPart{filename: "clip.mp4", contentType: "video/mp4", data: []byte("fake")})
	s.assertError(unavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}

func (s *HandlersTestSuite) TestListPostsNewestFirst() {
	s.createPost(s.alice, "first")
	time.Sleep(5 * time.Millisecond)
	s.createPost(s.bob, "second")

	w := s.do(http.MethodGet, "/api/v1/posts", s.carol, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode[struct {
		Posts []postBody `json:"posts"`
	}](s.T(), w)
	s.Require().Len(body.Posts, 2)
	s.Equal("second", body.Posts[0].Title)
	s.Equal("first", body.Posts[1].Title)
}

func (s *HandlersTestSuite) TestFeedUsesRankingThenCache() {
	older := s.createPost(s.alice, "older")
	time.Sleep(5 * time.Millisecond)
	newer := s.createPost(s.bob, "newer")

	type feed struct {
		Posts  []postBody `json:"posts"`
		Source string     `json:"source"`
	}

	chronological := decode[feed](s.T(), s.do(http.MethodGet, "/api/v1/posts/feed", s.carol, nil))
	s.Equal("chronological", chronological.Source)
	s.Require().Len(chronological.Posts, 2)
	s.Equal(newer.ID, chronological.Posts[0].ID)

	s.ranker.posts = []string{older.ID, "unknown", newer.ID}
	ranked := decode[feed](s.T(), s.do(http.MethodGet, "/api/v1/posts/feed", s.carol, nil))
	s.Equal("recommended", ranked.Source)
	s.Require().Len(ranked.Posts, 2)
	s.Equal(older.ID, ranked.Posts[0].ID)
	calls := s.ranker.calls

	// Served from cache even though the ranker changed its mind.
	s.ranker.posts = []string{newer.ID}
	cached := decode[feed](s.T(), s.do(http.MethodGet, "/api/v1/posts/feed", s.carol, nil))
	s.Equal(older.ID, cached.Posts[0].ID)
	s.Equal(calls, s.ranker.calls)
}

func (s *HandlersTestSuite) TestReactions() {
	post := s.createPost(s.alice, "vote")
	path := "/api/v1/posts/" + post.ID

	type reaction struct {
		LikeCount    int `json:"like_count"`
		DislikeCount int `json:"dislike_count"`
	}

	r := decode[reaction](s.T(), s.do(http.MethodPost, path+"/like", s.bob, nil))
	s.Equal(reaction{1, 0}, r)
	r = decode[reaction](s.T(), s.do(http.MethodPost, path+"/like", s.bob, nil))
	s.Equal(reaction{1, 0}, r)
	r = decode[reaction](s.T(), s.do(http.MethodPost, path+"/dislike", s.bob, nil))
	s.Equal(reaction{0, 1}, r)
	r = decode[reaction](s.T(), s.do(http.MethodPost, path+"/like", s.carol, nil))
	s.Equal(reaction{1, 1}, r)

	s.assertError(s.do(http.MethodPost, "/api/v1/posts/missing/like", s.bob, nil), http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestDeletePost() {
	w := s.postForm(s.alice, map[string][]string{"title": {"gone soon"}},
		&mediaPart{filename: "clip.mp4", contentType: "video/mp4", data: []byte("fake")})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	post := decode[postBody](s.T(), w)
	path := "/api/v1/posts/" + post.ID

	s.do(http.MethodPost, path+"/comments", s.bob, map[string]string{"text": "nice"})

	s.assertError(s.do(http.MethodDelete, path, s.bob, nil), http.StatusForbidden, "FORBIDDEN")

	deleted := s.do(http.MethodDelete, path, s.alice, nil)
	s.Require().Equal(http.StatusOK, deleted.Code, deleted.Body.String())
	s.Equal(s.uploader.uploaded, s.uploader.deleted)

	s.assertError(s.do(http.MethodGet, path+"/comments", s.alice, nil), http.StatusNotFound, "NOT_FOUND")
	s.assertError(s.do(http.MethodDelete, path, s.alice, nil), http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestCommentsCarrySpamVerdict() {
	post := s.createPost(s.alice, "discussion")
	path := "/api/v1/posts/" + post.ID + "/comments"

	type comment struct {
		Text        string  `json:"text"`
		Spam        bool    `json:"spam"`
		SpamScore   float64 `json:"spam_score"`
		SpamChecked bool    `json:"spam_checked"`
	}

	clean := s.do(http.MethodPost, path, s.bob, map[string]string{"text": "great post"})
	s.Require().Equal(http.StatusCreated, clean.Code, clean.Body.String())
	s.False(decode[comment](s.T(), clean).Spam)

	spam := s.do(http.MethodPost, path, s.carol, map[string]string{"text": "buy now cheap"})
	s.Require().Equal(http.StatusCreated, spam.Code)
	flagged := decode[comment](s.T(), spam)
	s.True(flagged.Spam)
	s.True(flagged.SpamChecked)
	s.InDelta(0.97, flagged.SpamScore, 1e-9)

	type list struct {
		Comments []comment `json:"comments"`
	}
	others := decode[list](s.T(), s.do(http.MethodGet, path, s.alice, nil))
	s.Require().Len(others.Comments, 1)
	s.Equal("great post", others.Comments[0].Text)

	own := decode[list](s.T(), s.do(http.MethodGet, path, s.carol, nil))
	s.Len(own.Comments, 2)

	s.assertError(s.do(http.MethodPost, path, s.bob, map[string]string{"text": "  "}), http.StatusBadRequest, "VALIDATION_ERROR")
	s.assertError(s.do(http.MethodPost, "/api/v1/posts/missing/comments", s.bob, map[string]string{"text": "hello"}), http.StatusNotFound, "NOT_FOUND")
}

func (s *HandlersTestSuite) TestCommentsDegradeWithoutClassifier() {
	s.handlers.SetSpamClassifier(moderation.NewSpamClient("", time.Second))
	post := s.createPost(s.alice, "quiet")

	w := s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/comments", s.bob, map[string]string{"text": "buy now"})
	s.Require().Equal(http.StatusCreated, w.Code)
	body := decode[struct {
		Spam        bool `json:"spam"`
		SpamChecked bool `json:"spam_checked"`
	}](s.T(), w)
	s.False(body.Spam)
	s.False(body.SpamChecked)
}
