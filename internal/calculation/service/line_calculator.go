package service

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	calcdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	exemptiondomain "github.com/smallbiznis/taxflow/internal/exemption/domain"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
	ratesvc "github.com/smallbiznis/taxflow/internal/rate/service"
	ruledomain "github.com/smallbiznis/taxflow/internal/rule/domain"
	rulesvc "github.com/smallbiznis/taxflow/internal/rule/service"
)

// Exemption reasons reported on zero-tax lines.
const (
	reasonExemptFlag  = "exempt"
	reasonCertificate = "exemption_certificate"
	reasonRule        = "rule_exemption"
)

var hundred = decimal.NewFromInt(100)

// lineEnv is the per-request snapshot a line calculation reads from.
// It never changes during a calculation, keeping calculateLine pure.
type lineEnv struct {
	jurisdictions map[snowflake.ID]jurisdictiondomain.Jurisdiction
	rates         []ratedomain.Rate
	rules         []ruledomain.RuleConfiguration
	certificates  []exemptiondomain.ExemptionCertificate
	requestFields map[string]any
}

// calculateLine runs the full pipeline for one line: exemption checks,
// rule interpretation, category filtering, compound-ordered rate
// application. It returns the line result plus the ids of certificates
// that actually exempted something, so the caller can record usage.
func calculateLine(line calcdomain.LineItem, discountFactor decimal.Decimal, env lineEnv) (calcdomain.LineResult, []snowflake.ID, error) {
	base := line.BaseAmount().Mul(discountFactor)
	result := calcdomain.LineResult{
		LineID:     line.ID,
		BaseAmount: base,
	}

	if line.IsExempt {
		return exemptResult(result, reasonExemptFlag), nil, nil
	}

	if certID, ok := certificateCovering(env.certificates, exemptiondomain.TaxTypeAll); ok {
		return exemptResult(result, reasonCertificate), []snowflake.ID{certID}, nil
	}

	ruleResult, err := rulesvc.Apply(env.rules, rulesvc.LineContext{
		BaseAmount: base,
		Fields:     lineFields(line, base, env.requestFields),
	})
	if err != nil {
		return calcdomain.LineResult{}, nil, calcdomain.NewComputationError(err)
	}
	for _, applied := range ruleResult.Applied {
		result.AppliedRules = append(result.AppliedRules, calcdomain.AppliedRuleRef{
			RuleID:   applied.RuleID,
			RuleName: applied.RuleName,
		})
	}
	if ruleResult.Exempt {
		return exemptResult(result, reasonRule), nil, nil
	}
	taxable := ruleResult.TaxableAmount

	compatible := make([]ratedomain.Rate, 0, len(env.rates))
	for _, r := range env.rates {
		if r.AppliesToCategory(line.Category) {
			compatible = append(compatible, r)
		}
	}

	ordered, err := ratesvc.SortByCompound(compatible)
	if err != nil {
		return calcdomain.LineResult{}, nil, calcdomain.NewComputationError(err)
	}

	appliedByType := make(map[string]decimal.Decimal)
	usedCerts := make([]snowflake.ID, 0, 1)
	skipped := 0
	for _, r := range ordered {
		if certID, ok := certificateCovering(env.certificates, r.TaxType); ok {
			usedCerts = appendID(usedCerts, certID)
			skipped++
			continue
		}

		amount, err := ratesvc.Apply(r, taxable, appliedByType)
		if err != nil {
			return calcdomain.LineResult{}, nil, calcdomain.NewComputationError(err)
		}

		j := env.jurisdictions[r.JurisdictionID]
		result.Details = append(result.Details, calcdomain.TaxDetail{
			JurisdictionID:   r.JurisdictionID,
			JurisdictionName: j.Name,
			JurisdictionType: string(j.Type),
			RateID:           r.ID,
			TaxType:          r.TaxType,
			Method:           string(r.Method),
			Percentage:       r.Percentage,
			TaxableAmount:    taxable,
			Amount:           amount,
		})
		appliedByType[r.TaxType] = appliedByType[r.TaxType].Add(amount)
		result.TotalTax = result.TotalTax.Add(amount)
	}

	// Every compatible rate was covered by a certificate: the line is
	// effectively exempt and reported as such.
	if len(ordered) > 0 && skipped == len(ordered) {
		exempt := exemptResult(result, reasonCertificate)
		return exempt, usedCerts, nil
	}

	if result.TotalTax.IsPositive() {
		result.TaxableAmount = taxable
		if base.IsPositive() {
			result.EffectiveRate = result.TotalTax.Div(base).Mul(hundred).Round(4)
		}
	}
	return result, usedCerts, nil
}

func exemptResult(result calcdomain.LineResult, reason string) calcdomain.LineResult {
	result.TaxableAmount = decimal.Zero
	result.TotalTax = decimal.Zero
	result.EffectiveRate = decimal.Zero
	result.ExemptReason = reason
	result.Details = []calcdomain.TaxDetail{{
		TaxableAmount: decimal.Zero,
		Amount:        decimal.Zero,
		Reason:        reason,
	}}
	return result
}

// lineFields builds the flat field set rule conditions evaluate against:
// the line's own attributes layered over the request-level fields.
func lineFields(line calcdomain.LineItem, base decimal.Decimal, requestFields map[string]any) map[string]any {
	fields := make(map[string]any, len(requestFields)+6)
	for k, v := range requestFields {
		fields[k] = v
	}
	fields["line_id"] = line.ID
	fields["amount"] = line.Amount
	fields["quantity"] = line.Quantity
	fields["base_amount"] = base
	fields["category"] = line.Category
	fields["description"] = line.Description
	return fields
}

func certificateCovering(certs []exemptiondomain.ExemptionCertificate, taxType string) (snowflake.ID, bool) {
	for _, cert := range certs {
		if cert.CoversTaxType(taxType) {
			return cert.ID, true
		}
	}
	return 0, false
}

func appendID(ids []snowflake.ID, id snowflake.ID) []snowflake.ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
