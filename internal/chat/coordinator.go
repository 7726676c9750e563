package chat

import (
	"context"
	"time"

	"github.com/campuslink/backend/internal/dto"
	apierrors "github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/events"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"go.uber.org/zap"
)

// Broadcaster pushes a persisted message to connected sessions: the
// conversation room plus each member's personal room.
type Broadcaster interface {
	BroadcastMessage(conversationID string, memberIDs []string, msg *dto.MessageResponse)
}

const publishTimeout = 2 * time.Second

// Coordinator runs the send pipeline: membership check, persist, move the
// latest pointer, fan out. Sends to one conversation are serialised so
// broadcast order equals persistence order.
type Coordinator struct {
	conversations *ConversationStore
	messages      *MessageStore
	broadcaster   Broadcaster
	publisher     events.Publisher
	locks         *keyedMutex
}

func NewCoordinator(conversations *ConversationStore, messages *MessageStore, broadcaster Broadcaster, publisher events.Publisher) *Coordinator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Coordinator{
		conversations: conversations,
		messages:      messages,
		broadcaster:   broadcaster,
		publisher:     publisher,
		locks:         newKeyedMutex(),
	}
}

// Send persists content from senderID and fans it out. senderID must be
// the authenticated identity; it is never read from client payloads.
func (c *Coordinator) Send(ctx context.Context, senderID, conversationID, content string) (*dto.MessageResponse, error) {
	start := time.Now()

	if senderID == "" {
		return nil, apierrors.Unauthorized("sender is not authenticated")
	}
	if conversationID == "" {
		return nil, apierrors.ValidationError("conversation_id", "conversation id is required")
	}

	// The event is published under the same lock so the conversation's
	// partition sees messages in persistence order.
	unlock := c.locks.Lock(conversationID)
	defer unlock()

	view, err := c.send(ctx, senderID, conversationID, content)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, view)

	metrics.Get().MessageSendDuration.Observe(time.Since(start).Seconds())
	return view, nil
}

// publish is best effort; a failed event never fails the send.
func (c *Coordinator) publish(ctx context.Context, view *dto.MessageResponse) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.PublishMessageCreated(pubCtx, view); err != nil {
		logger.WarnWithFields("Failed to publish message event", err,
			logger.WithConversationID(view.ConversationID),
			zap.String("message_id", view.ID),
		)
	}
}

func (c *Coordinator) send(ctx context.Context, senderID, conversationID, content string) (*dto.MessageResponse, error) {
	memberIDs, err := c.conversations.MemberIDs(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs, senderID) {
		return nil, apierrors.Forbidden("not a member of this conversation")
	}

	msg, err := c.messages.Create(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}
	metrics.Get().MessagesPersistedTotal.Inc()

	// The message is authoritative once written; a stale pointer is logged
	// and left for the next send to correct.
	if err := c.conversations.SetLatestMessage(ctx, conversationID, msg.ID); err != nil {
		metrics.Get().LatestPointerFailures.Inc()
		logger.ErrorWithFields("Failed to update latest message", err,
			logger.WithConversationID(conversationID),
			zap.String("message_id", msg.ID),
		)
	}

	view := dto.ToMessageResponse(msg)
	if c.broadcaster != nil {
		c.broadcaster.BroadcastMessage(conversationID, memberIDs, view)
	}
	return view, nil
}

// History returns a conversation's messages, oldest first, to a member.
func (c *Coordinator) History(ctx context.Context, actorID, conversationID string) ([]*dto.MessageResponse, error) {
	if err := c.conversations.RequireMember(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return c.messages.ListForConversation(ctx, conversationID)
}
