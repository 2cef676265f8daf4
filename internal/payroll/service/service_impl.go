package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxflow/internal/observability/metrics"
	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	log     *zap.Logger
	repo    payrolldomain.Repository
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Repository payrolldomain.Repository
	Metrics    *metrics.Metrics
}

func NewService(p ServiceParam) payrolldomain.Service {
	return &Service{
		log:     p.Log.Named("payroll.service"),
		repo:    p.Repository,
		metrics: p.Metrics,
	}
}

// Calculate resolves the payroll rules active at the pay date for the
// location and applies each:
//
//   - gross below a rule's minimum skips the rule entirely
//   - a maximum caps the taxable amount; with YTD earnings supplied only
//     the remaining headroom under the cap is taxed
//   - the effective rate is the employee portion when the rule splits,
//     otherwise the full rate; amounts round to cents half up
//
// Employer portions are computed alongside, reported separately, and do
// not reduce net pay.
func (s *Service) Calculate(ctx context.Context, in payrolldomain.Input) (*payrolldomain.Breakdown, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rules, err := s.repo.FindActive(ctx, in.Location, in.PayDate)
	if err != nil {
		return nil, err
	}

	breakdown := &payrolldomain.Breakdown{
		GrossPay: in.GrossPay,
		ByType:   make(map[string]decimal.Decimal),
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}

		if rule.MinTaxableAmount != nil && in.GrossPay.LessThan(*rule.MinTaxableAmount) {
			// Not applicable, not zero-and-record.
			continue
		}

		taxable := taxableAmount(rule, in)
		if !taxable.IsPositive() {
			continue
		}

		employeeTax := taxable.Mul(rule.EffectiveRate()).Div(hundred).Round(2)

		var employerTax decimal.Decimal
		if rule.EmployerPortion != nil {
			employerTax = taxable.Mul(*rule.EmployerPortion).Div(hundred).Round(2)
		}

		breakdown.Applied = append(breakdown.Applied, payrolldomain.AppliedRule{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			TaxType:       rule.TaxType,
			Method:        "percentage",
			TaxableAmount: taxable,
			EffectiveRate: rule.EffectiveRate(),
			EmployeeTax:   employeeTax,
			EmployerTax:   employerTax,
		})
		breakdown.ByType[rule.TaxType] = breakdown.ByType[rule.TaxType].Add(employeeTax)
		breakdown.TotalTax = breakdown.TotalTax.Add(employeeTax)
		breakdown.TotalEmployerTax = breakdown.TotalEmployerTax.Add(employerTax)
	}

	breakdown.NetPay = in.GrossPay.Sub(breakdown.TotalTax)

	s.metrics.RecordPayrollRun(ctx, in.Location.CountryCode)
	s.log.Debug("payroll calculated",
		zap.String("gross", in.GrossPay.StringFixed(2)),
		zap.String("total_tax", breakdown.TotalTax.StringFixed(2)),
		zap.Int("rules_applied", len(breakdown.Applied)),
	)
	return breakdown, nil
}

// taxableAmount applies the wage-base cap. Without YTD data the cap
// bounds the period's gross; with YTD data only the remaining headroom
// under the cap is taxable.
func taxableAmount(rule payrolldomain.PayrollTaxRule, in payrolldomain.Input) decimal.Decimal {
	if rule.MaxTaxableAmount == nil {
		return in.GrossPay
	}

	cap := *rule.MaxTaxableAmount
	if ytd, ok := in.YTD[rule.TaxType]; ok {
		headroom := cap.Sub(ytd)
		if headroom.IsNegative() {
			return decimal.Zero
		}
		return decimal.Min(in.GrossPay, headroom)
	}
	return decimal.Min(in.GrossPay, cap)
}
