package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	calcdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	"github.com/smallbiznis/taxflow/internal/cache"
	"github.com/smallbiznis/taxflow/internal/clock"
	"github.com/smallbiznis/taxflow/internal/config"
	exemptiondomain "github.com/smallbiznis/taxflow/internal/exemption/domain"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	nexusdomain "github.com/smallbiznis/taxflow/internal/nexus/domain"
	"github.com/smallbiznis/taxflow/internal/observability/metrics"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
	ruledomain "github.com/smallbiznis/taxflow/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log     *zap.Logger
	clk     clock.Clock
	cfg     *config.EngineConfigHolder
	metrics *metrics.Metrics

	resolver      jurisdictiondomain.Resolver
	rateRepo      ratedomain.Repository
	ruleRepo      ruledomain.Repository
	matcher       exemptiondomain.Matcher
	exemptionRepo exemptiondomain.Repository
	nexusRepo     nexusdomain.Repository
	lru           cache.TaxLookupCache
}

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Cfg     *config.EngineConfigHolder
	Metrics *metrics.Metrics

	Resolver      jurisdictiondomain.Resolver
	RateRepo      ratedomain.Repository
	RuleRepo      ruledomain.Repository
	Matcher       exemptiondomain.Matcher
	ExemptionRepo exemptiondomain.Repository
	NexusRepo     nexusdomain.Repository
	Cache         cache.TaxLookupCache
}

func NewService(p ServiceParam) calcdomain.Service {
	return &Service{
		log:     p.Log.Named("calculation.service"),
		clk:     p.Clock,
		cfg:     p.Cfg,
		metrics: p.Metrics,

		resolver:      p.Resolver,
		rateRepo:      p.RateRepo,
		ruleRepo:      p.RuleRepo,
		matcher:       p.Matcher,
		exemptionRepo: p.ExemptionRepo,
		nexusRepo:     p.NexusRepo,
		lru:           p.Cache,
	}
}

// Calculate fetches the as-of snapshot once, runs the pure computation,
// then executes the intended side effects. A side-effect failure is
// reported and counted but the computed result is still returned.
func (s *Service) Calculate(ctx context.Context, req calcdomain.Request) (*calcdomain.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	asOf := req.TransactionDate
	if asOf.IsZero() {
		asOf = s.clk.Now()
	}
	engineCfg := s.cfg.Get()

	jurisdictions, err := s.resolver.Resolve(ctx, req.Location, asOf)
	if err != nil {
		return nil, err
	}

	var (
		rates       []ratedomain.Rate
		rules       []ruledomain.RuleConfiguration
		certs       []exemptiondomain.ExemptionCertificate
		obligations []nexusdomain.FilingObligation
	)
	if len(jurisdictions) > 0 {
		ids := jurisdictionIDs(jurisdictions)

		rates, err = s.loadRates(ctx, ids, asOf)
		if err != nil {
			return nil, err
		}
		rules, err = s.ruleRepo.FindActive(ctx, ids, asOf)
		if err != nil {
			return nil, err
		}
		certs, err = s.matcher.Match(ctx, exemptionRef(req), ids, asOf)
		if err != nil {
			return nil, err
		}
		obligations, err = s.nexusRepo.FindDueWithin(ctx, ids, asOf,
			time.Duration(engineCfg.NexusFilingWarnDays)*24*time.Hour)
		if err != nil {
			return nil, err
		}
	}

	resp, effects, err := compute(req, asOf, jurisdictions, rates, rules, certs, obligations, engineCfg)
	if err != nil {
		if calcdomain.IsComputationError(err) {
			s.log.Error("calculation failed", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordCalculation(ctx, req.Location.CountryCode)
	for _, w := range resp.Warnings {
		s.metrics.RecordWarning(ctx, w.Code)
	}
	s.executeSideEffects(ctx, effects)

	return resp, nil
}

// ApplicableRates returns the rates in force at loc on asOf, joined with
// their jurisdictions for reporting.
func (s *Service) ApplicableRates(ctx context.Context, loc jurisdictiondomain.Location, asOf time.Time) ([]calcdomain.RateInfo, error) {
	if asOf.IsZero() {
		asOf = s.clk.Now()
	}

	jurisdictions, err := s.resolver.Resolve(ctx, loc, asOf)
	if err != nil {
		return nil, err
	}
	if len(jurisdictions) == 0 {
		return nil, nil
	}

	rates, err := s.loadRates(ctx, jurisdictionIDs(jurisdictions), asOf)
	if err != nil {
		return nil, err
	}

	byID := jurisdictionIndex(jurisdictions)
	infos := make([]calcdomain.RateInfo, 0, len(rates))
	for _, r := range rates {
		j := byID[r.JurisdictionID]
		infos = append(infos, calcdomain.RateInfo{
			RateID:           r.ID,
			JurisdictionID:   r.JurisdictionID,
			JurisdictionName: j.Name,
			JurisdictionCode: j.Code,
			JurisdictionType: string(j.Type),
			RateName:         r.Name,
			TaxType:          r.TaxType,
			Method:           string(r.Method),
			Percentage:       r.Percentage,
			FlatAmount:       r.FlatAmount,
			EffectiveFrom:    r.EffectiveFrom,
			EffectiveTo:      r.EffectiveTo,
		})
	}
	return infos, nil
}

func (s *Service) loadRates(ctx context.Context, ids []snowflake.ID, asOf time.Time) ([]ratedomain.Rate, error) {
	if cached, ok := s.lru.GetRates(ctx, ids, asOf); ok {
		return cached, nil
	}
	rates, err := s.rateRepo.FindActive(ctx, ids, asOf)
	if err != nil {
		return nil, err
	}
	s.lru.SetRates(ctx, ids, asOf, rates)
	return rates, nil
}

func (s *Service) executeSideEffects(ctx context.Context, effects []calcdomain.SideEffect) {
	for _, effect := range effects {
		switch effect.Kind {
		case calcdomain.SideEffectMarkCertificateUsed:
			if err := s.exemptionRepo.MarkUsed(ctx, effect.CertificateID); err != nil {
				s.log.Warn("certificate usage update failed",
					zap.String("certificate_id", effect.CertificateID.String()),
					zap.Error(err),
				)
				s.metrics.RecordSideEffectFailure(ctx, string(effect.Kind))
			}
		}
	}
}

// compute is the pure calculation: same inputs, same response. All reads
// happen before it runs and all writes after, as intended side effects.
func compute(
	req calcdomain.Request,
	asOf time.Time,
	jurisdictions []jurisdictiondomain.Jurisdiction,
	rates []ratedomain.Rate,
	rules []ruledomain.RuleConfiguration,
	certs []exemptiondomain.ExemptionCertificate,
	obligations []nexusdomain.FilingObligation,
	engineCfg config.EngineConfig,
) (*calcdomain.Response, []calcdomain.SideEffect, error) {
	resp := &calcdomain.Response{
		CalculationID:  uuid.NewString(),
		DiscountAmount: req.DiscountAmount,
		ShippingAmount: req.ShippingAmount,
		Summary:        make(map[string]map[string]decimal.Decimal),
	}

	subtotal := decimal.Zero
	for _, line := range req.Lines {
		subtotal = subtotal.Add(line.BaseAmount())
	}
	resp.Subtotal = subtotal

	if len(jurisdictions) == 0 {
		for _, line := range req.Lines {
			resp.Lines = append(resp.Lines, calcdomain.LineResult{
				LineID:     line.ID,
				BaseAmount: line.BaseAmount(),
			})
		}
		resp.ExemptAmount = subtotal
		resp.TotalAmount = subtotal.Sub(req.DiscountAmount).Add(req.ShippingAmount)
		resp.Warnings = append(resp.Warnings, calcdomain.Warning{
			Code:    calcdomain.WarnNoJurisdictions,
			Message: calcdomain.MsgNoJurisdictions,
		})
		return resp, nil, nil
	}

	// Discount distributes proportionally across line bases.
	discountFactor := decimal.NewFromInt(1)
	if req.DiscountAmount.IsPositive() && subtotal.IsPositive() {
		discountFactor = subtotal.Sub(req.DiscountAmount).Div(subtotal)
		if discountFactor.IsNegative() {
			discountFactor = decimal.Zero
		}
	}

	env := lineEnv{
		jurisdictions: jurisdictionIndex(jurisdictions),
		rates:         rates,
		rules:         rules,
		certificates:  certs,
		requestFields: requestFields(req),
	}

	var effects []calcdomain.SideEffect
	taxableTotal := decimal.Zero
	exemptTotal := decimal.Zero
	for _, line := range req.Lines {
		lineResult, usedCerts, err := calculateLine(line, discountFactor, env)
		if err != nil {
			return nil, nil, err
		}
		resp.Lines = append(resp.Lines, lineResult)
		resp.TotalTax = resp.TotalTax.Add(lineResult.TotalTax)
		addToSummary(resp.Summary, lineResult.Details)

		if lineResult.TaxableAmount.IsPositive() {
			taxableTotal = taxableTotal.Add(lineResult.TaxableAmount)
		} else {
			exemptTotal = exemptTotal.Add(lineResult.BaseAmount)
		}
		effects = appendEffects(effects, usedCerts)
	}

	if req.ShippingAmount.IsPositive() {
		shippingResult, usedCerts, err := calculateShipping(req.ShippingAmount, env)
		if err != nil {
			return nil, nil, err
		}
		resp.ShippingTax = shippingResult.TotalTax
		resp.TotalTax = resp.TotalTax.Add(shippingResult.TotalTax)
		addToSummary(resp.Summary, shippingResult.Details)
		if shippingResult.TaxableAmount.IsPositive() {
			taxableTotal = taxableTotal.Add(shippingResult.TaxableAmount)
		}
		effects = appendEffects(effects, usedCerts)
	}

	resp.TaxableAmount = taxableTotal
	resp.ExemptAmount = exemptTotal
	resp.TotalAmount = subtotal.Sub(req.DiscountAmount).Add(req.ShippingAmount).Add(resp.TotalTax)

	resp.Warnings = append(resp.Warnings, advisoryWarnings(jurisdictions, rates, certs, obligations, asOf, engineCfg)...)
	return resp, effects, nil
}

// calculateShipping taxes the shipping charge as its own pseudo-line in
// the "shipping" category. A matched certificate covering shipping (or
// everything) exempts it entirely.
func calculateShipping(amount decimal.Decimal, env lineEnv) (calcdomain.LineResult, []snowflake.ID, error) {
	if certID, ok := certificateCovering(env.certificates, exemptiondomain.TaxTypeShipping); ok {
		result := exemptResult(calcdomain.LineResult{LineID: "shipping", BaseAmount: amount}, reasonCertificate)
		return result, []snowflake.ID{certID}, nil
	}
	line := calcdomain.LineItem{
		ID:       "shipping",
		Amount:   amount,
		Quantity: decimal.NewFromInt(1),
		Category: "shipping",
	}
	return calculateLine(line, decimal.NewFromInt(1), env)
}

func advisoryWarnings(
	jurisdictions []jurisdictiondomain.Jurisdiction,
	rates []ratedomain.Rate,
	certs []exemptiondomain.ExemptionCertificate,
	obligations []nexusdomain.FilingObligation,
	asOf time.Time,
	engineCfg config.EngineConfig,
) []calcdomain.Warning {
	var warnings []calcdomain.Warning

	rated := make(map[snowflake.ID]bool, len(rates))
	for _, r := range rates {
		rated[r.JurisdictionID] = true
	}
	for _, j := range jurisdictions {
		if !rated[j.ID] {
			warnings = append(warnings, calcdomain.Warning{
				Code:    calcdomain.WarnNoActiveRate,
				Message: fmt.Sprintf("Jurisdiction %q resolved but has no active tax rate", j.Name),
			})
		}
	}

	expiryWindow := time.Duration(engineCfg.CertificateExpiryWarnDays) * 24 * time.Hour
	for _, cert := range certs {
		if cert.ExpiresWithin(asOf, expiryWindow) {
			warnings = append(warnings, calcdomain.Warning{
				Code: calcdomain.WarnCertificateExpiring,
				Message: fmt.Sprintf("Exemption certificate %s expires on %s",
					cert.CertificateNumber, cert.ExpiresAt.Format("2006-01-02")),
			})
		}
	}

	byID := jurisdictionIndex(jurisdictions)
	for _, o := range obligations {
		warnings = append(warnings, calcdomain.Warning{
			Code: calcdomain.WarnNexusFilingDue,
			Message: fmt.Sprintf("Nexus filing for %q is due on %s",
				byID[o.JurisdictionID].Name, o.NextDueAt.Format("2006-01-02")),
		})
	}
	return warnings
}

func addToSummary(summary map[string]map[string]decimal.Decimal, details []calcdomain.TaxDetail) {
	for _, d := range details {
		if d.Amount.IsZero() {
			continue
		}
		byType, ok := summary[d.JurisdictionName]
		if !ok {
			byType = make(map[string]decimal.Decimal)
			summary[d.JurisdictionName] = byType
		}
		byType[d.TaxType] = byType[d.TaxType].Add(d.Amount)
	}
}

func appendEffects(effects []calcdomain.SideEffect, certIDs []snowflake.ID) []calcdomain.SideEffect {
	for _, id := range certIDs {
		duplicate := false
		for _, e := range effects {
			if e.Kind == calcdomain.SideEffectMarkCertificateUsed && e.CertificateID == id {
				duplicate = true
				break
			}
		}
		if !duplicate {
			effects = append(effects, calcdomain.SideEffect{
				Kind:          calcdomain.SideEffectMarkCertificateUsed,
				CertificateID: id,
			})
		}
	}
	return effects
}

func requestFields(req calcdomain.Request) map[string]any {
	fields := map[string]any{
		"country_code": req.Location.CountryCode,
		"state_code":   req.Location.StateCode,
		"county_name":  req.Location.CountyName,
		"city_name":    req.Location.CityName,
		"zip_code":     req.Location.ZipCode,
	}
	if req.CustomerID != nil {
		fields["customer_id"] = req.CustomerID.String()
	}
	return fields
}

func exemptionRef(req calcdomain.Request) exemptiondomain.Reference {
	return exemptiondomain.Reference{
		CustomerID:    req.CustomerID,
		CertificateID: req.CertificateID,
	}
}

func jurisdictionIDs(jurisdictions []jurisdictiondomain.Jurisdiction) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(jurisdictions))
	for _, j := range jurisdictions {
		ids = append(ids, j.ID)
	}
	return ids
}

func jurisdictionIndex(jurisdictions []jurisdictiondomain.Jurisdiction) map[snowflake.ID]jurisdictiondomain.Jurisdiction {
	byID := make(map[snowflake.ID]jurisdictiondomain.Jurisdiction, len(jurisdictions))
	for _, j := range jurisdictions {
		byID[j.ID] = j
	}
	return byID
}
