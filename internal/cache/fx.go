package cache

import (
	"time"

	"github.com/smallbiznis/taxflow/internal/config"
	"go.uber.org/fx"
)

func newLookupCache(holder *config.EngineConfigHolder) TaxLookupCache {
	c := NewTaxLookupCacheFunc(func() time.Duration {
		return time.Duration(holder.Get().LookupCacheTTLMinutes) * time.Minute
	})
	holder.OnReload(c.Invalidate)
	return c
}

// Module wires the tax lookup cache for the application.
var Module = fx.Module("cache",
	fx.Provide(newLookupCache),
)
