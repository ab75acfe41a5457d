package service

import (
	"context"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/broadcast"
	"github.com/TheLucianoBraga/zapgestor/internal/port/database"
)

// QueueService manages the tenant's scheduled message and charge queues.
// Status legality (cancel only pending, retry only failed, delete only
// terminal) is enforced atomically by the store; the service layers the
// real-time updates on top.
type QueueService struct {
	store database.Store
	hub   broadcast.Broadcaster
}

// NewQueueService creates a new QueueService.
func NewQueueService(store database.Store, hub broadcast.Broadcaster) *QueueService {
	return &QueueService{store: store, hub: hub}
}

// ListPendingMessages returns the tenant's messages still waiting to go out.
func (s *QueueService) ListPendingMessages(ctx context.Context) ([]schedule.Message, error) {
	return s.store.ListPendingMessages(ctx)
}

// ListMessageHistory returns sent and failed messages. Cancelled
// messages never show in history.
func (s *QueueService) ListMessageHistory(ctx context.Context) ([]schedule.Message, error) {
	return s.store.ListMessageHistory(ctx)
}

// CancelMessage cancels a pending message.
func (s *QueueService) CancelMessage(ctx context.Context, id string) error {
	if err := s.store.CancelMessage(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "message", id, string(schedule.StatusCancelled))
	return nil
}

// RetryMessage puts a failed message back in the pending queue.
func (s *QueueService) RetryMessage(ctx context.Context, id string) error {
	if err := s.store.RetryMessage(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "message", id, string(schedule.StatusPending))
	return nil
}

// DeleteMessage removes a message that is no longer pending.
func (s *QueueService) DeleteMessage(ctx context.Context, id string) error {
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "message", id, "deleted")
	return nil
}

// ListPendingCharges returns the tenant's charge reminders still waiting.
func (s *QueueService) ListPendingCharges(ctx context.Context) ([]schedule.Charge, error) {
	return s.store.ListPendingCharges(ctx)
}

// ListChargeHistory returns sent and failed charges.
func (s *QueueService) ListChargeHistory(ctx context.Context) ([]schedule.Charge, error) {
	return s.store.ListChargeHistory(ctx)
}

// CancelCharge cancels a pending charge reminder.
func (s *QueueService) CancelCharge(ctx context.Context, id string) error {
	if err := s.store.CancelCharge(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "charge", id, string(schedule.StatusCancelled))
	return nil
}

// RetryCharge puts a failed charge back in the pending queue.
func (s *QueueService) RetryCharge(ctx context.Context, id string) error {
	if err := s.store.RetryCharge(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "charge", id, string(schedule.StatusPending))
	return nil
}

// DeleteCharge removes a charge that is no longer pending.
func (s *QueueService) DeleteCharge(ctx context.Context, id string) error {
	if err := s.store.DeleteCharge(ctx, id); err != nil {
		return err
	}
	s.broadcastQueue(ctx, "charge", id, "deleted")
	return nil
}

func (s *QueueService) broadcastQueue(ctx context.Context, kind, id, status string) {
	s.hub.BroadcastEvent(ctx, ws.EventQueueUpdated, ws.QueueUpdatedEvent{
		TenantID: middleware.TenantIDFromContext(ctx),
		Kind:     kind,
		ItemID:   id,
		Status:   status,
	})
}
