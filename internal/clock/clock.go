package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly so ingestion times are controllable in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem returns a Clock backed by the wall clock, in UTC.
func NewSystem() Clock {
	return systemClock{}
}

// Module wires the system clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
