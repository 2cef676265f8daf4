package domain

import (
	"context"
	"time"

	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
)

type Repository interface {
	// FindActive returns the active payroll rules for a location whose
	// activity window covers asOf: the country's federal-level rules
	// plus the rules of the location's state, if any.
	FindActive(ctx context.Context, loc jurisdictiondomain.Location, asOf time.Time) ([]PayrollTaxRule, error)
}

// Service computes the withholding breakdown of one paycheck.
type Service interface {
	Calculate(ctx context.Context, in Input) (*Breakdown, error)
}
