// Package database defines the storage port consumed by the services.
package database

import (
	"context"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
)

// Store is the port interface over tenant-scoped persistence. The
// tenant ID travels in the context; every implementation must scope
// its queries by it.
type Store interface {
	// Settings
	ListSettings(ctx context.Context) ([]settings.Setting, error)
	GetSetting(ctx context.Context, key string) (*settings.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// Scheduled messages
	ListPendingMessages(ctx context.Context) ([]schedule.Message, error)
	ListMessageHistory(ctx context.Context) ([]schedule.Message, error)
	CancelMessage(ctx context.Context, id string) error
	RetryMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error

	// Charge schedules
	ListPendingCharges(ctx context.Context) ([]schedule.Charge, error)
	ListChargeHistory(ctx context.Context) ([]schedule.Charge, error)
	CancelCharge(ctx context.Context, id string) error
	RetryCharge(ctx context.Context, id string) error
	DeleteCharge(ctx context.Context, id string) error
}
