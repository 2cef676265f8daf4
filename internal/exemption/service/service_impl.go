package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	exemptiondomain "github.com/smallbiznis/taxflow/internal/exemption/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Matcher struct {
	log  *zap.Logger
	repo exemptiondomain.Repository
}

type MatcherParam struct {
	fx.In

	Log        *zap.Logger
	Repository exemptiondomain.Repository
}

func NewMatcher(p MatcherParam) exemptiondomain.Matcher {
	return &Matcher{
		log:  p.Log.Named("exemption.matcher"),
		repo: p.Repository,
	}
}

// Match returns the certificates of ref that are verified, unexpired at
// asOf, and whose jurisdiction set intersects the resolved ids. Tax-type
// coverage is checked per line by the calculator; usage recording is a
// caller-side effect.
func (m *Matcher) Match(ctx context.Context, ref exemptiondomain.Reference, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]exemptiondomain.ExemptionCertificate, error) {
	var candidates []exemptiondomain.ExemptionCertificate

	switch {
	case ref.CertificateID != nil:
		cert, err := m.repo.FindByID(ctx, *ref.CertificateID)
		if err != nil {
			return nil, err
		}
		if cert != nil {
			candidates = append(candidates, *cert)
		}
	case ref.CustomerID != nil:
		found, err := m.repo.FindByCustomer(ctx, *ref.CustomerID)
		if err != nil {
			return nil, err
		}
		candidates = found
	default:
		return nil, nil
	}

	matched := make([]exemptiondomain.ExemptionCertificate, 0, len(candidates))
	for _, cert := range candidates {
		if !cert.EligibleAt(asOf) {
			continue
		}
		if !cert.CoversJurisdictions(jurisdictionIDs) {
			continue
		}
		matched = append(matched, cert)
	}
	return matched, nil
}
