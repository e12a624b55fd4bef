package main

import (
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/gateway"
	"github.com/smallbiznis/academy/internal/observability"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config { return cfg.ForService("gateway") }),
		observability.Module,
		gateway.Module,
	)
	app.Run()
}
