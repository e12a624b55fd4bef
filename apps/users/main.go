package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/achievement"
	achievementdomain "github.com/smallbiznis/academy/internal/achievement/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/listener"
	"github.com/smallbiznis/academy/internal/messaging"
	"github.com/smallbiznis/academy/internal/migration"
	"github.com/smallbiznis/academy/internal/observability"
	"github.com/smallbiznis/academy/internal/progress"
	progressdomain "github.com/smallbiznis/academy/internal/progress/domain"
	"github.com/smallbiznis/academy/internal/server"
	"github.com/smallbiznis/academy/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config { return cfg.ForService("users-service") }),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module(migration.SchemaUsers,
			&progressdomain.Progress{},
			&achievementdomain.Achievement{},
		),

		fx.Supply(messaging.PublisherConfig{Exchange: events.UsersExchange, Confirm: true}),
		fx.Provide(events.UsersTopology),
		messaging.Module,

		progress.Module,
		achievement.Module,
		listener.UsersModule,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
