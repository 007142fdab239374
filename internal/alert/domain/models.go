// Package domain contains the alert model and rule engine contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type identifies an alert rule. The set is closed but expected to grow.
type Type string

const (
	TypeLowPower    Type = "low_power"
	TypeHighVoltage Type = "high_voltage"
)

// Rule thresholds.
const (
	// LowPowerThreshold is the strict upper bound on power for the
	// low-power rule.
	LowPowerThreshold = 10.0
	// LowPowerWindow is how many most-recent readings must all be below
	// the threshold. Fewer readings than this and the rule does not
	// evaluate at all.
	LowPowerWindow = 6
	// HighVoltageThreshold is the strict lower bound triggering the
	// high-voltage rule.
	HighVoltageThreshold = 270.0
)

// Alert is a raised alert. Lifecycle is active → resolved, terminal; the
// current rule set never resolves an alert, so Resolve exists only as an
// extension point. At most one active alert per (device, type) — enforced
// by a partial unique index with conflicting inserts treated as no-ops.
type Alert struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	TelemetryID *snowflake.ID `gorm:"index"`
	DeviceID    string        `gorm:"not null;index:uq_alerts_active_device_type,unique,where:is_active,priority:1"`
	Type        Type          `gorm:"column:alert_type;not null;index:uq_alerts_active_device_type,unique,where:is_active,priority:2"`
	TriggeredAt time.Time     `gorm:"not null"`
	IsActive    bool          `gorm:"not null;default:true"`
	ResolvedAt  *time.Time
	Details     string `gorm:"not null"`
}

func (Alert) TableName() string { return "alerts" }
