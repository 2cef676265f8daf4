package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/taxflow/internal/cache"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resolver struct {
	log  *zap.Logger
	repo jurisdictiondomain.Repository
	lru  cache.TaxLookupCache
}

type ResolverParam struct {
	fx.In

	Log        *zap.Logger
	Repository jurisdictiondomain.Repository
	Cache      cache.TaxLookupCache
}

func NewResolver(p ResolverParam) jurisdictiondomain.Resolver {
	return &Resolver{
		log:  p.Log.Named("jurisdiction.resolver"),
		repo: p.Repository,
		lru:  p.Cache,
	}
}

// Resolve returns the jurisdictions applicable to loc at asOf, ordered
// federal → state → county → city → special district.
//
// Federal jurisdictions of the location's country always apply. State,
// county and city only apply when the location names them and the
// jurisdiction's declared scope matches; special districts apply when
// their zip set contains the location's zip. An unknown location yields
// an empty slice, not an error.
func (r *Resolver) Resolve(ctx context.Context, loc jurisdictiondomain.Location, asOf time.Time) ([]jurisdictiondomain.Jurisdiction, error) {
	country := strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	if country == "" {
		return nil, nil
	}

	candidates, ok := r.lru.GetJurisdictions(ctx, country, asOf)
	if !ok {
		fetched, err := r.repo.FindActive(ctx, country, asOf)
		if err != nil {
			return nil, err
		}
		candidates = fetched
		r.lru.SetJurisdictions(ctx, country, asOf, candidates)
	}

	resolved := make([]jurisdictiondomain.Jurisdiction, 0, len(candidates))
	for _, j := range candidates {
		if !j.ActiveAt(asOf) {
			continue
		}
		if matches(j, loc) {
			resolved = append(resolved, j)
		}
	}

	sort.SliceStable(resolved, func(i, k int) bool {
		if resolved[i].Type.Rank() != resolved[k].Type.Rank() {
			return resolved[i].Type.Rank() < resolved[k].Type.Rank()
		}
		return resolved[i].ID < resolved[k].ID
	})

	if len(resolved) == 0 {
		r.log.Debug("no jurisdictions resolved",
			zap.String("country", country),
			zap.String("state", loc.StateCode),
			zap.Time("as_of", asOf),
		)
	}
	return resolved, nil
}

func matches(j jurisdictiondomain.Jurisdiction, loc jurisdictiondomain.Location) bool {
	switch j.Type {
	case jurisdictiondomain.TypeFederal:
		return true
	case jurisdictiondomain.TypeState:
		return loc.StateCode != "" && equalFold(j.StateCode, loc.StateCode)
	case jurisdictiondomain.TypeCounty:
		return loc.StateCode != "" && loc.CountyName != "" &&
			equalFold(j.StateCode, loc.StateCode) && equalFold(j.CountyName, loc.CountyName)
	case jurisdictiondomain.TypeCity:
		return loc.StateCode != "" && loc.CityName != "" &&
			equalFold(j.StateCode, loc.StateCode) && equalFold(j.CityName, loc.CityName)
	case jurisdictiondomain.TypeSpecial:
		return j.CoversZip(loc.ZipCode)
	default:
		return false
	}
}

func equalFold(declared *string, queried string) bool {
	if declared == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*declared), strings.TrimSpace(queried))
}
