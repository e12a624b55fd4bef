package progress

import (
	"github.com/smallbiznis/academy/internal/progress/repository"
	"github.com/smallbiznis/academy/internal/progress/service"
	"go.uber.org/fx"
)

var Module = fx.Module("progress.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
