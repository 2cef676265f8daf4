package calculation

import (
	"github.com/smallbiznis/taxflow/internal/calculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calculation.service",
	fx.Provide(service.NewService),
)
