package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/bonus-desk/internal/events"
)

// NotificationService turns domain events into an operator-facing audit
// trail. Submitter-facing delivery happens in the browser via the status
// endpoint; this side only records what happened.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestClaimed, n.handleRequestClaimed)
	n.dispatcher.Subscribe(events.EventRequestReleased, n.handleRequestReleased)
	n.dispatcher.Subscribe(events.EventRequestDecided, n.handleRequestDecided)
	n.dispatcher.Subscribe(events.EventAdminPresenceChanged, n.handlePresenceChanged)
}

func (n *NotificationService) handleRequestCreated(_ context.Context, event events.Event) error {
	n.logger.Info("RequestCreated", zap.String("request_id", event.RequestID))
	return nil
}

func (n *NotificationService) handleRequestClaimed(_ context.Context, event events.Event) error {
	stolen := false
	if payload, ok := event.Payload.(events.RequestClaimedPayload); ok {
		stolen = payload.Stolen
	}
	n.logger.Info("RequestClaimed",
		zap.String("request_id", event.RequestID),
		zap.String("admin_id", event.AdminID),
		zap.Bool("stolen", stolen))
	return nil
}

func (n *NotificationService) handleRequestReleased(_ context.Context, event events.Event) error {
	n.logger.Info("RequestReleased",
		zap.String("request_id", event.RequestID),
		zap.String("admin_id", event.AdminID))
	return nil
}

func (n *NotificationService) handleRequestDecided(_ context.Context, event events.Event) error {
	outcome := ""
	if payload, ok := event.Payload.(events.RequestDecidedPayload); ok {
		outcome = string(payload.Outcome)
	}
	n.logger.Info("RequestDecided",
		zap.String("request_id", event.RequestID),
		zap.String("admin_id", event.AdminID),
		zap.String("outcome", outcome))
	return nil
}

func (n *NotificationService) handlePresenceChanged(_ context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.AdminPresenceChangedPayload); ok {
		n.logger.Info("AdminPresenceChanged",
			zap.String("admin_id", event.AdminID),
			zap.String("old", string(payload.OldStatus)),
			zap.String("new", string(payload.NewStatus)),
			zap.Int("released", payload.Released))
	}
	return nil
}
