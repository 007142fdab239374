package alert

import (
	"github.com/trillectric/gridpulse/internal/alert/repository"
	"github.com/trillectric/gridpulse/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
