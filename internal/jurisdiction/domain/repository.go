package domain

import (
	"context"
	"time"
)

// Repository reads persisted jurisdictions. The engine never writes them;
// configuration management owns mutation.
type Repository interface {
	// FindActive returns the active jurisdictions of a country whose
	// activity window covers asOf, ordered by type rank then id.
	FindActive(ctx context.Context, countryCode string, asOf time.Time) ([]Jurisdiction, error)
}
