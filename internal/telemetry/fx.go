package telemetry

import (
	"github.com/trillectric/gridpulse/internal/telemetry/repository"
	"github.com/trillectric/gridpulse/internal/telemetry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("telemetry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
