package container

import (
	"context"
	"errors"
	"testing"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/events"
	"github.com/campuslink/backend/internal/testutil"
	"github.com/campuslink/backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupRunsInReverseOrder(t *testing.T) {
	c := New()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		c.OnCleanup(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, c.Cleanup(context.Background()))
	assert.Equal(t, []int{2, 1, 0}, order)

	// Already drained.
	require.NoError(t, c.Cleanup(context.Background()))
	assert.Len(t, order, 3)
}

func TestCleanupContinuesAfterFailure(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	ran := false
	c.OnCleanup(func(context.Context) error {
		ran = true
		return nil
	})
	c.OnCleanup(func(context.Context) error { return boom })

	err := c.Cleanup(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestValidateReportsMissingDeps(t *testing.T) {
	err := New().Validate()
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, initErr.MissingDeps, "database (DB)")
	assert.Contains(t, initErr.MissingDeps, "realtime hub")
	assert.Contains(t, err.Error(), "auth service")
}

func TestValidateAcceptsRequiredDeps(t *testing.T) {
	db := testutil.NewDB(t)
	conversations := chat.NewConversationStore(db)
	hub := websocket.NewHub()

	c := New().
		SetDB(db).
		SetAuthService(auth.NewService(db, []byte("secret"), 0, "")).
		SetHub(hub).
		SetCoordinator(chat.NewCoordinator(conversations, chat.NewMessageStore(db), hub, nil))

	assert.NoError(t, c.Validate())
	assert.IsType(t, events.NopPublisher{}, c.Publisher())
	assert.Nil(t, c.Uploader())
}
