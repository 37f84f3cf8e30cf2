// Package notifications provides real-time comment event delivery.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"commentboard/internal/middleware"
	"commentboard/internal/models"

	"github.com/redis/go-redis/v9"
)

// CommentsChannel is the Redis pub/sub channel carrying comment events.
const CommentsChannel = "comments:events"

const (
	EventCommentCreated = "comment_created"
	EventCommentUpdated = "comment_updated"
	EventCommentDeleted = "comment_deleted"
)

// CommentEvent is the payload published for every comment write.
type CommentEvent struct {
	Type      string          `json:"type"`
	CommentID uint            `json:"comment_id"`
	Comment   *models.Comment `json:"comment,omitempty"`
}

// Notifier provides helpers to publish comment events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishCommentEvent publishes event on CommentsChannel. A nil client is a no-op.
func (n *Notifier) PublishCommentEvent(ctx context.Context, event CommentEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, CommentsChannel, string(payload)).Err()
}

// StartCommentSubscriber subscribes to CommentsChannel and calls onMessage
// for each payload until ctx is cancelled.
func (n *Notifier) StartCommentSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, CommentsChannel)
	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", CommentsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in comment subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
