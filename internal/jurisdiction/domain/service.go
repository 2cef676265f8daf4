package domain

import (
	"context"
	"time"
)

// Resolver maps a location to the ordered set of applicable jurisdictions
// (federal → state → county → city → special district).
//
// An empty result is not an error: callers treat it as "zero tax, emit
// warning".
type Resolver interface {
	Resolve(ctx context.Context, loc Location, asOf time.Time) ([]Jurisdiction, error)
}
