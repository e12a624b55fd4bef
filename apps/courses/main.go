package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/certificate"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/course"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/listener"
	"github.com/smallbiznis/academy/internal/messaging"
	"github.com/smallbiznis/academy/internal/migration"
	"github.com/smallbiznis/academy/internal/observability"
	"github.com/smallbiznis/academy/internal/server"
	"github.com/smallbiznis/academy/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config { return cfg.ForService("courses-service") }),
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module(migration.SchemaCourses,
			&coursedomain.Course{},
			&coursedomain.Level{},
			&certificatedomain.Certificate{},
		),

		fx.Supply(messaging.PublisherConfig{Exchange: events.CourseExchange, Confirm: true}),
		fx.Provide(events.CoursesTopology),
		messaging.Module,

		course.Module,
		certificate.Module,
		listener.CoursesModule,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
