package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/domain"
)

// SnapshotFunc loads the authoritative row set for reconciliation sweeps.
type SnapshotFunc func(ctx context.Context) ([]domain.BonusRequest, error)

// Bridge keeps a Mirror synchronized with the feed. It consumes row events
// as they arrive and additionally runs a periodic wholesale sweep so a
// dropped pub/sub message can only go stale for one sweep interval.
type Bridge struct {
	mirror    *Mirror
	feed      Feed
	snapshot  SnapshotFunc
	interval  time.Duration
	logger    *zap.Logger
	listeners []func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewBridge wires a bridge for the given mirror.
func NewBridge(mirror *Mirror, feed Feed, snapshot SnapshotFunc, interval time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{
		mirror:   mirror,
		feed:     feed,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
	}
}

// OnChange registers a callback fired after every mirror mutation. Must be
// called before Start; the listener slice is not guarded.
func (b *Bridge) OnChange(fn func()) {
	b.listeners = append(b.listeners, fn)
}

// Start performs an initial sweep, then runs the feed consumer and the
// reconciliation ticker until Stop or context cancellation.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.started = true
	b.mu.Unlock()

	if err := b.reconcile(runCtx); err != nil {
		b.logger.Warn("initial mirror sweep failed", zap.Error(err))
	}

	events, unsubscribe, err := b.feed.Subscribe(runCtx)
	if err != nil {
		b.logger.Warn("feed subscribe failed; mirror runs on sweeps only", zap.Error(err))
	}

	go func() {
		defer close(b.done)
		if unsubscribe != nil {
			defer unsubscribe()
		}

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				b.apply(event)
			case <-ticker.C:
				if err := b.reconcile(runCtx); err != nil {
					b.logger.Warn("mirror sweep failed", zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Stop halts the bridge. Safe to call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	done := b.done
	b.cancel = nil
	b.started = false
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *Bridge) apply(event FeedEvent) {
	switch event.Kind {
	case FeedUpsert:
		if event.Row == nil {
			return
		}
		b.mirror.ApplyUpsert(*event.Row)
	case FeedDelete:
		b.mirror.ApplyDelete(event.ID)
	default:
		return
	}
	b.notify()
}

func (b *Bridge) reconcile(ctx context.Context) error {
	rows, err := b.snapshot(ctx)
	if err != nil {
		return err
	}
	b.mirror.ReplaceAll(rows)
	b.notify()
	return nil
}

func (b *Bridge) notify() {
	for _, fn := range b.listeners {
		fn()
	}
}
