// Package seed inserts sample data for local development.
package seed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"gorm.io/gorm"
)

const sampleDevice = "SOL-XL1001"

// InsertSampleData writes two telemetry readings, a high-voltage alert on
// the second, and a duplicate discard of the first. Intended for the
// dev-only insert endpoint; never called in production.
func InsertSampleData(ctx context.Context, db *gorm.DB, genID *snowflake.Node, now time.Time) error {
	now = now.UTC()

	first := telemetrydomain.Record{
		ID:        genID.Generate(),
		DeviceID:  sampleDevice,
		Timestamp: now.Add(-time.Minute),
		Voltage:   230.5,
		Current:   5.2,
		Power:     1197.6,
		CreatedAt: now,
	}
	second := telemetrydomain.Record{
		ID:        genID.Generate(),
		DeviceID:  sampleDevice,
		Timestamp: now,
		Voltage:   400.0,
		Current:   6.0,
		Power:     2400.0,
		CreatedAt: now,
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&first).Error; err != nil {
			return err
		}
		if err := tx.Create(&second).Error; err != nil {
			return err
		}

		secondID := second.ID
		alert := alertdomain.Alert{
			ID:          genID.Generate(),
			TelemetryID: &secondID,
			DeviceID:    sampleDevice,
			Type:        alertdomain.TypeHighVoltage,
			TriggeredAt: now,
			IsActive:    true,
			Details:     "Voltage exceeded 270V (current: 400V)",
		}
		if err := tx.Create(&alert).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"device_id": sampleDevice,
			"timestamp": first.Timestamp.Format(time.RFC3339),
			"voltage":   first.Voltage,
			"current":   first.Current,
			"power":     first.Power,
		})
		if err != nil {
			return err
		}

		firstID := first.ID
		firstTS := first.Timestamp
		discarded := telemetrydomain.Discarded{
			ID:          genID.Generate(),
			TelemetryID: &firstID,
			DeviceID:    sampleDevice,
			Timestamp:   &firstTS,
			Data:        payload,
			Reason:      telemetrydomain.DiscardReasonDuplicate,
			CreatedAt:   now,
		}
		return tx.Create(&discarded).Error
	})
}
