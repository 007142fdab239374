package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfNoActive inserts the alert unless an active alert of the same
	// type already exists for the device. Returns whether a row was
	// written. The check-and-write is atomic at the storage layer.
	InsertIfNoActive(ctx context.Context, db *gorm.DB, alert *Alert) (bool, error)
	FindActive(ctx context.Context, db *gorm.DB, deviceID string, alertType Type) (*Alert, error)
	ListByDevice(ctx context.Context, db *gorm.DB, deviceID string, activeOnly bool) ([]Alert, error)
	Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
}
