package rule

import (
	"github.com/smallbiznis/taxflow/internal/rule/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rule.store",
	fx.Provide(repository.NewRepository),
)
