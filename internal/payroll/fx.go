package payroll

import (
	"github.com/smallbiznis/taxflow/internal/payroll/repository"
	"github.com/smallbiznis/taxflow/internal/payroll/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payroll.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
