package domain

import (
	"context"

	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
)

// DuplicateWindowSeconds is the half-width of the retransmission suppression
// window. A reading within ±5s (inclusive) of any stored reading for the
// same device is a duplicate. The check is pairwise against each existing
// record; duplicate clusters are not merged transitively.
const DuplicateWindowSeconds = 5

// IngestRequest is a raw submitted reading. All fields are pointers so the
// validator can distinguish absent fields from zero values, and the
// timestamp stays a string until it is parsed.
type IngestRequest struct {
	DeviceID  *string  `json:"device_id"`
	Timestamp *string  `json:"timestamp"`
	Voltage   *float64 `json:"voltage"`
	Current   *float64 `json:"current"`
	Power     *float64 `json:"power"`
}

// IngestStatus is the outcome of one ingestion attempt. Duplicate is a
// normal result, not an error.
type IngestStatus string

const (
	IngestStatusAccepted  IngestStatus = "accepted"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusRejected  IngestStatus = "rejected"
)

// IngestResult reports the pipeline outcome. Reason is set only for
// rejected outcomes; Record only for accepted ones.
type IngestResult struct {
	Status IngestStatus
	Reason DiscardReason
	Record *Record
}

// DeviceStats aggregates per-device ingestion counts. The invariant
// TotalEntries + DuplicatesCount + DiscardedCount equals the number of
// ingestion attempts for the device.
type DeviceStats struct {
	DeviceID        string
	TotalEntries    int64
	DuplicatesCount int64
	DiscardedCount  int64
	ActiveAlerts    []alertdomain.Alert
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)
	List(ctx context.Context, deviceID string) ([]Record, error)
	Stats(ctx context.Context, deviceID string) (DeviceStats, error)
}
