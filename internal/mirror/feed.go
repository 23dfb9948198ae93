package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

// FeedKind distinguishes row-level change events on the feed.
type FeedKind string

const (
	FeedUpsert FeedKind = "upsert"
	FeedDelete FeedKind = "delete"
)

// FeedEvent is the wire format published on the Redis channel. Upserts carry
// the full row; deletes carry only the id.
type FeedEvent struct {
	Kind FeedKind             `json:"kind"`
	ID   string               `json:"id"`
	Row  *domain.BonusRequest `json:"row,omitempty"`
}

// Feed is the realtime transport between the write path and mirrors.
type Feed interface {
	Publish(ctx context.Context, event FeedEvent) error
	Subscribe(ctx context.Context) (<-chan FeedEvent, func(), error)
}

// RedisFeed implements Feed over a Redis pub/sub channel.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed builds the feed on the given channel.
func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	return &RedisFeed{client: client, channel: channel}
}

// Publish serializes and sends the event. Pub/sub is fire-and-forget;
// subscribers that miss an event catch up via the reconciliation sweep.
func (f *RedisFeed) Publish(ctx context.Context, event FeedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish feed event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded feed events and a cancel func.
// Undecodable messages are dropped; the sweep repairs any resulting gap.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan FeedEvent, func(), error) {
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe feed: %w", err)
	}

	out := make(chan FeedEvent)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event FeedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
