package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// EvaluateRequest carries the measurements of a just-stored reading. The
// evaluator fetches the rest of the device history itself so the low-power
// window always includes the triggering record.
type EvaluateRequest struct {
	DeviceID    string
	TelemetryID snowflake.ID
	Power       float64
	Voltage     float64
}

type ListRequest struct {
	DeviceID   string
	ActiveOnly bool
}

type Service interface {
	// Evaluate runs all rules for the device. Rules are independent and
	// unordered; more than one may raise on a single invocation.
	Evaluate(ctx context.Context, req EvaluateRequest) error
	List(ctx context.Context, req ListRequest) ([]Alert, error)
	// Resolve transitions an alert to the terminal resolved state. No rule
	// calls this yet; it is the designated extension point for resolution
	// logic.
	Resolve(ctx context.Context, id snowflake.ID) error
}

var ErrAlertNotFound = errors.New("alert_not_found")
