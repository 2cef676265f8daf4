package nexus

import (
	"github.com/smallbiznis/taxflow/internal/nexus/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("nexus.store",
	fx.Provide(repository.NewRepository),
)
