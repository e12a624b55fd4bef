package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/observability"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"github.com/smallbiznis/academy/internal/server"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	ratelimit.Module,
	fx.Provide(
		fx.Annotate(
			func(l *ratelimit.ClientLimiter) *ratelimit.ClientLimiter { return l },
			fx.As(new(Limiter)),
		),
		New,
		func(g *Gateway, obsCfg observability.Config, cfg config.Config) *gin.Engine {
			return g.Engine(obsCfg, cfg.Gateway.AllowedOrigins)
		},
	),
	fx.Invoke(server.Run),
)
