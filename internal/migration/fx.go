package migration

import (
	"strings"

	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	"github.com/trillectric/gridpulse/internal/config"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		return AutoMigrate(conn)
	}),
)

// AutoMigrate creates the schema through gorm for non-postgres databases
// (sqlite in local development and tests).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&telemetrydomain.Record{},
		&telemetrydomain.Discarded{},
		&alertdomain.Alert{},
	)
}
