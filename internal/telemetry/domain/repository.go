package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	// FindWithin returns any record for the device whose timestamp falls in
	// [from, to] inclusive, or nil.
	FindWithin(ctx context.Context, db *gorm.DB, deviceID string, from, to time.Time) (*Record, error)
	ListByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]Record, error)
	// RecentByDevice returns up to limit records ordered by timestamp,
	// most recent first.
	RecentByDevice(ctx context.Context, db *gorm.DB, deviceID string, limit int) ([]Record, error)
	CountByDevice(ctx context.Context, db *gorm.DB, deviceID string) (int64, error)

	InsertDiscarded(ctx context.Context, db *gorm.DB, discarded *Discarded) error
	CountDiscarded(ctx context.Context, db *gorm.DB, deviceID string, reason DiscardReason) (int64, error)
	CountDiscardedOther(ctx context.Context, db *gorm.DB, deviceID string, excludeReason DiscardReason) (int64, error)
}
