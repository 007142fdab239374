package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/trillectric/gridpulse/internal/clock"
	"github.com/trillectric/gridpulse/internal/config"
	"github.com/trillectric/gridpulse/internal/migration"
	"github.com/trillectric/gridpulse/internal/observability"
	"github.com/trillectric/gridpulse/internal/ratelimit"
	"github.com/trillectric/gridpulse/internal/server"
	"github.com/trillectric/gridpulse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
