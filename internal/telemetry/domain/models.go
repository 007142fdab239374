// Package domain contains persistence models and contracts for telemetry
// ingestion: accepted readings and the discard audit log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DiscardReason classifies why a reading was not accepted.
type DiscardReason string

const (
	DiscardReasonInvalidTimestamp DiscardReason = "invalid_timestamp"
	DiscardReasonMalformed        DiscardReason = "malformed"
	DiscardReasonDuplicate        DiscardReason = "duplicate"
)

// Record is one accepted telemetry reading. Immutable once written; the
// pipeline never updates or deletes rows.
type Record struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	DeviceID    string       `gorm:"index:idx_telemetry_device_ts,priority:1;not null"`
	Timestamp   time.Time    `gorm:"index:idx_telemetry_device_ts,priority:2;not null"`
	Voltage     float64      `gorm:"not null"`
	Current     float64      `gorm:"not null"`
	Power       float64      `gorm:"not null"`
	IsDuplicate bool         `gorm:"not null;default:false"`
	CreatedAt   time.Time    `gorm:"not null"`
}

func (Record) TableName() string { return "telemetry" }

// Discarded records a rejected or duplicate reading for audit. TelemetryID
// references the colliding record for duplicates and is nil otherwise;
// Timestamp is nil when the submitted timestamp could not be parsed. The raw
// payload is kept verbatim for debugging. Write-once, never mutated.
type Discarded struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	TelemetryID *snowflake.ID  `gorm:"index"`
	DeviceID    string         `gorm:"index"`
	Timestamp   *time.Time
	Data        datatypes.JSON `gorm:"not null"`
	Reason      DiscardReason  `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null"`
}

func (Discarded) TableName() string { return "discarded" }
