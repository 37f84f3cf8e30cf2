package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	CommentsListKey  = "comments:all"
	CommentKeyPrefix = "comment:%d"
)

func CommentKey(commentID uint) string {
	return fmt.Sprintf(CommentKeyPrefix, commentID)
}

// keyFamily maps a key to its metric label, e.g. "comment:12" -> "comment".
func keyFamily(key string) string {
	if key == CommentsListKey {
		return "comments"
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Invalidate deletes keys and bumps the generation so in-flight reads do not
// write back what they fetched before the change.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_ = invalidate(ctx, keys)
}

func invalidate(ctx context.Context, keys []string) error {
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

// InvalidateComments drops the list cache and the per-comment entries for ids.
func InvalidateComments(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, CommentsListKey)
	for _, id := range ids {
		keys = append(keys, CommentKey(id))
	}
	Invalidate(ctx, keys...)
}

// InvalidateAllComments drops every cached comment entry, used after bulk imports.
func InvalidateAllComments(ctx context.Context) error {
	if client == nil {
		return nil
	}
	keys := []string{CommentsListKey}
	iter := client.Scan(ctx, 0, "comment:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan comment keys: %w", err)
	}
	return invalidate(ctx, keys)
}
