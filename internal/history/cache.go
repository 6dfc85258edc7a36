package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cached keeps the newest window of each room in a Redis list in front of a
// durable Store. The durable store stays the source of truth: a cache failure
// never fails an append, and reads fall back to the backing store.
type Cached struct {
	backing Store
	client  *redis.Client
	window  int
}

func NewCached(backing Store, client *redis.Client, window int) *Cached {
	if window <= 0 {
		window = DefaultLimit
	}
	return &Cached{backing: backing, client: client, window: window}
}

func recentKey(roomID string) string {
	return "room:" + roomID + ":recent"
}

func (c *Cached) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	stored, err := c.backing.Append(ctx, msg)
	if err != nil {
		return nil, err
	}

	if err := c.push(ctx, stored); err != nil {
		observability.GetLogger(ctx).Warn("history cache: push failed, invalidating",
			zap.String("room_id", stored.RoomID), zap.Error(err))
		_ = c.client.Del(ctx, recentKey(stored.RoomID)).Err()
	}
	return stored, nil
}

// push only extends a warm list. A cold key is left for the next read to fill,
// otherwise the list would hold a partial window that looks complete.
func (c *Cached) push(ctx context.Context, msg *domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := recentKey(msg.RoomID)
	n, err := c.client.RPushX(ctx, key, payload).Result()
	if err != nil {
		return err
	}
	if n > int64(c.window) {
		return c.client.LTrim(ctx, key, -int64(c.window), -1).Err()
	}
	return nil
}

func (c *Cached) Recent(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 || limit > c.window {
		return c.backing.Recent(ctx, roomID, limit)
	}

	msgs, err := c.read(ctx, roomID, limit)
	if err == nil && msgs != nil {
		return msgs, nil
	}
	if err != nil {
		observability.GetLogger(ctx).Warn("history cache: read failed",
			zap.String("room_id", roomID), zap.Error(err))
	}

	msgs, err = c.backing.Recent(ctx, roomID, c.window)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, roomID, msgs)

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// read returns nil, nil on a cache miss.
func (c *Cached) read(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	key := recentKey(roomID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return nil, err
	}

	raw, err := c.client.LRange(ctx, key, -int64(limit), -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Message, 0, len(raw))
	for _, r := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, fmt.Errorf("decode cached message: %w", err)
		}
		if msg.ID == "" {
			continue // placeholder of an empty room
		}
		out = append(out, &msg)
	}
	return out, nil
}

func (c *Cached) fill(ctx context.Context, roomID string, msgs []*domain.Message) {
	key := recentKey(roomID)
	values := make([]any, 0, len(msgs)+1)
	// An empty placeholder keeps empty rooms warm so RPushX has a list to extend.
	values = append(values, []byte(`{}`))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return
		}
		values = append(values, payload)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -int64(c.window+1), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.GetLogger(ctx).Warn("history cache: fill failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}

func (c *Cached) LastSequence(ctx context.Context, roomID string) (int64, error) {
	return c.backing.LastSequence(ctx, roomID)
}
