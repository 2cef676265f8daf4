package rate

import (
	"github.com/smallbiznis/taxflow/internal/rate/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.store",
	fx.Provide(repository.NewRepository),
)
