package jurisdiction

import (
	"github.com/smallbiznis/taxflow/internal/jurisdiction/repository"
	"github.com/smallbiznis/taxflow/internal/jurisdiction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("jurisdiction.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
)
