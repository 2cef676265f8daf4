package service

import (
	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the tax a single rate produces on a calculation base.
//
// appliedByType carries the tax amounts already computed for the same
// line keyed by tax type; when the rate compounds, the amounts of the
// listed types join the base. Callers must apply rates in the order
// produced by SortByCompound so the referenced amounts exist.
//
// Apply is a pure function: same inputs always yield the same rounded
// cent amount (two decimals, half up).
func Apply(r ratedomain.Rate, base decimal.Decimal, appliedByType map[string]decimal.Decimal) (decimal.Decimal, error) {
	if err := r.Validate(); err != nil {
		return decimal.Zero, err
	}

	calculationBase := base
	for _, taxType := range r.CompoundOn {
		if amount, ok := appliedByType[taxType]; ok {
			calculationBase = calculationBase.Add(amount)
		}
	}

	// Below the minimum the rate simply does not bite.
	if r.MinTaxableAmount != nil && calculationBase.LessThan(*r.MinTaxableAmount) {
		return decimal.Zero, nil
	}

	switch r.Method {
	case ratedomain.MethodFlat:
		return r.FlatAmount.Round(2), nil
	default:
		// Percentage, and tiered falling back to the percentage
		// formula (see CalculationMethod docs).
		if r.MaxTaxableAmount != nil && calculationBase.GreaterThan(*r.MaxTaxableAmount) {
			// Hard cap, not a marginal bracket.
			calculationBase = *r.MaxTaxableAmount
		}
		return calculationBase.Mul(r.Percentage).Div(hundred).Round(2), nil
	}
}
