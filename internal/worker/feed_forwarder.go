package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/mirror"
)

// FeedForwarder republishes request row changes from the in-process
// dispatcher onto the realtime feed, where bridges (local and on other
// instances) pick them up. Publish failures are logged and dropped; the
// reconciliation sweep covers the gap.
type FeedForwarder struct {
	dispatcher events.Dispatcher
	feed       mirror.Feed
	logger     *zap.Logger
}

// NewFeedForwarder creates the forwarder.
func NewFeedForwarder(dispatcher events.Dispatcher, feed mirror.Feed, logger *zap.Logger) *FeedForwarder {
	return &FeedForwarder{dispatcher: dispatcher, feed: feed, logger: logger}
}

// Register subscribes the forwarder to every row-bearing event type.
func (f *FeedForwarder) Register() {
	if f.dispatcher == nil || f.feed == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventRequestCreated,
		events.EventRequestClaimed,
		events.EventRequestReleased,
		events.EventRequestDecided,
	} {
		f.dispatcher.Subscribe(eventType, f.forward)
	}
}

func (f *FeedForwarder) forward(ctx context.Context, event events.Event) error {
	row, ok := rowFromPayload(event.Payload)
	if !ok {
		return nil
	}
	err := f.feed.Publish(ctx, mirror.FeedEvent{Kind: mirror.FeedUpsert, ID: row.ID, Row: &row})
	if err != nil {
		f.logger.Warn("feed publish failed",
			zap.String("request_id", row.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

func rowFromPayload(payload any) (domain.BonusRequest, bool) {
	switch p := payload.(type) {
	case events.RequestCreatedPayload:
		return p.Request, true
	case events.RequestClaimedPayload:
		return p.Request, true
	case events.RequestReleasedPayload:
		return p.Request, true
	case events.RequestDecidedPayload:
		return p.Request, true
	default:
		return domain.BonusRequest{}, false
	}
}
