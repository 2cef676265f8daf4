package domain

import (
	"context"
	"time"

	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
)

// Service is the engine's outbound surface.
type Service interface {
	// Calculate produces the jurisdiction-attributed tax breakdown for
	// a request. Side effects intended by the calculation (certificate
	// usage counters) are executed after the result is computed; their
	// failure is reported, never allowed to corrupt the result.
	Calculate(ctx context.Context, req Request) (*Response, error)

	// ApplicableRates is the admin/reporting read-only view of the
	// rates in force at a location on a date.
	ApplicableRates(ctx context.Context, loc jurisdictiondomain.Location, asOf time.Time) ([]RateInfo, error)
}
