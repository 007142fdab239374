package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	pkgdb "github.com/trillectric/gridpulse/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() alertdomain.Repository {
	return &repo{}
}

// InsertIfNoActive relies on the partial unique index on active
// (device_id, alert_type): the insert is a no-op when an active alert of
// the same type already exists, so concurrent evaluators cannot raise
// duplicates. MySQL has no partial indexes; there the conflict falls back
// to a plain duplicate-key error, swallowed the same way.
func (r *repo) InsertIfNoActive(ctx context.Context, db *gorm.DB, alert *alertdomain.Alert) (bool, error) {
	if strings.EqualFold(db.Dialector.Name(), "sqlite") {
		return r.insertIfNoActiveSQLite(ctx, db, alert)
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "alert_type"}},
		DoNothing: true,
	}
	if strings.EqualFold(db.Dialector.Name(), "postgres") {
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "is_active"},
		}}
	}

	result := db.WithContext(ctx).Clauses(conflict).Create(alert)
	if result.Error != nil {
		if pkgdb.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) insertIfNoActiveSQLite(ctx context.Context, db *gorm.DB, alert *alertdomain.Alert) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO alerts (id, telemetry_id, device_id, alert_type, triggered_at, is_active, resolved_at, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (device_id, alert_type) WHERE is_active DO NOTHING`,
		alert.ID,
		alert.TelemetryID,
		alert.DeviceID,
		alert.Type,
		alert.TriggeredAt,
		alert.IsActive,
		alert.ResolvedAt,
		alert.Details,
	)
	if result.Error != nil {
		if pkgdb.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, deviceID string, alertType alertdomain.Type) (*alertdomain.Alert, error) {
	var alert alertdomain.Alert
	err := db.WithContext(ctx).
		Where("device_id = ? AND alert_type = ? AND is_active = ?", deviceID, alertType, true).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *repo) ListByDevice(ctx context.Context, db *gorm.DB, deviceID string, activeOnly bool) ([]alertdomain.Alert, error) {
	query := db.WithContext(ctx).Where("device_id = ?", deviceID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var alerts []alertdomain.Alert
	if err := query.Order("triggered_at ASC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&alertdomain.Alert{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":   false,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
