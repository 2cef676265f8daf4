package metrics

import (
	"github.com/smallbiznis/taxflow/internal/config"
	"go.uber.org/fx"
)

func newConfig(appCfg config.Config) Config {
	return Config{
		Enabled:          appCfg.MetricsEnabled,
		ExporterEndpoint: appCfg.OTLPEndpoint,
		ServiceName:      appCfg.AppName,
	}
}

// Module wires the meter provider and engine instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(
		newConfig,
		NewProvider,
		New,
	),
)
