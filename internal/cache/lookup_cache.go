package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
	"github.com/smallbiznis/taxflow/pkg/tenantctx"
)

const defaultLookupTTL = 5 * time.Minute

// TaxLookupCache stores hot-path jurisdiction and rate lookups. Entries
// are keyed per tenant and expire on TTL; configuration changes
// invalidate explicitly via Invalidate rather than waiting on a process
// restart.
type TaxLookupCache interface {
	GetJurisdictions(ctx context.Context, countryCode string, asOf time.Time) ([]jurisdictiondomain.Jurisdiction, bool)
	SetJurisdictions(ctx context.Context, countryCode string, asOf time.Time, items []jurisdictiondomain.Jurisdiction)
	GetRates(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]ratedomain.Rate, bool)
	SetRates(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time, items []ratedomain.Rate)
	Invalidate()
}

type taxLookupCache struct {
	jurisdictions Cache[string, []jurisdictiondomain.Jurisdiction]
	rates         Cache[string, []ratedomain.Rate]
	ttl           func() time.Duration
}

// NewTaxLookupCache returns an in-memory lookup cache with a fixed TTL.
// A non-positive ttl falls back to the default (5 minutes).
func NewTaxLookupCache(ttl time.Duration) TaxLookupCache {
	return NewTaxLookupCacheFunc(func() time.Duration { return ttl })
}

// NewTaxLookupCacheFunc returns a lookup cache whose TTL is read from fn
// on every write, so a reloaded configuration takes effect without a
// restart.
func NewTaxLookupCacheFunc(fn func() time.Duration) TaxLookupCache {
	return &taxLookupCache{
		jurisdictions: NewTTLCache[string, []jurisdictiondomain.Jurisdiction](),
		rates:         NewTTLCache[string, []ratedomain.Rate](),
		ttl:           fn,
	}
}

func (c *taxLookupCache) GetJurisdictions(ctx context.Context, countryCode string, asOf time.Time) ([]jurisdictiondomain.Jurisdiction, bool) {
	return c.jurisdictions.Get(cacheKey(tenantKey(ctx), countryCode, dateKey(asOf)))
}

func (c *taxLookupCache) SetJurisdictions(ctx context.Context, countryCode string, asOf time.Time, items []jurisdictiondomain.Jurisdiction) {
	c.jurisdictions.Set(cacheKey(tenantKey(ctx), countryCode, dateKey(asOf)), items, c.currentTTL())
}

func (c *taxLookupCache) GetRates(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]ratedomain.Rate, bool) {
	return c.rates.Get(cacheKey(tenantKey(ctx), idsKey(jurisdictionIDs), dateKey(asOf)))
}

func (c *taxLookupCache) SetRates(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time, items []ratedomain.Rate) {
	c.rates.Set(cacheKey(tenantKey(ctx), idsKey(jurisdictionIDs), dateKey(asOf)), items, c.currentTTL())
}

func (c *taxLookupCache) Invalidate() {
	c.jurisdictions.Purge()
	c.rates.Purge()
}

func (c *taxLookupCache) currentTTL() time.Duration {
	if ttl := c.ttl(); ttl > 0 {
		return ttl
	}
	return defaultLookupTTL
}

func tenantKey(ctx context.Context) string {
	if tenantID, ok := tenantctx.TenantID(ctx); ok {
		return "t" + strconv.FormatInt(int64(tenantID), 10)
	}
	return ""
}

func dateKey(asOf time.Time) string {
	return asOf.UTC().Format("2006-01-02")
}

func idsKey(ids []snowflake.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(int64(id), 10))
	}
	return strings.Join(parts, ",")
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
