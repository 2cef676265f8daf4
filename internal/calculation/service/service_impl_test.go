package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	calcdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	"github.com/smallbiznis/taxflow/internal/cache"
	"github.com/smallbiznis/taxflow/internal/clock"
	"github.com/smallbiznis/taxflow/internal/config"
	exemptiondomain "github.com/smallbiznis/taxflow/internal/exemption/domain"
	exemptionrepo "github.com/smallbiznis/taxflow/internal/exemption/repository"
	exemptionsvc "github.com/smallbiznis/taxflow/internal/exemption/service"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	jurisdictionrepo "github.com/smallbiznis/taxflow/internal/jurisdiction/repository"
	jurisdictionsvc "github.com/smallbiznis/taxflow/internal/jurisdiction/service"
	nexusdomain "github.com/smallbiznis/taxflow/internal/nexus/domain"
	nexusrepo "github.com/smallbiznis/taxflow/internal/nexus/repository"
	"github.com/smallbiznis/taxflow/internal/observability/metrics"
	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
	raterepo "github.com/smallbiznis/taxflow/internal/rate/repository"
	ruledomain "github.com/smallbiznis/taxflow/internal/rule/domain"
	rulerepo "github.com/smallbiznis/taxflow/internal/rule/repository"
	"github.com/smallbiznis/taxflow/pkg/tenantctx"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func idPtr(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func setupCalc(t *testing.T) (calcdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&jurisdictiondomain.Jurisdiction{},
		&ratedomain.Rate{},
		&ruledomain.RuleConfiguration{},
		&exemptiondomain.ExemptionCertificate{},
		&nexusdomain.FilingObligation{},
		&payrolldomain.PayrollTaxRule{},
	))

	log := zap.NewNop()
	lookupCache := cache.NewTaxLookupCache(time.Minute)

	svc := NewService(ServiceParam{
		Log:     log,
		Clock:   clock.NewFakeClock(testNow),
		Cfg:     config.NewStaticEngineConfigHolder(config.EngineConfig{CertificateExpiryWarnDays: 30, NexusFilingWarnDays: 7, LookupCacheTTLMinutes: 1}),
		Metrics: metrics.NewNop(),
		Resolver: jurisdictionsvc.NewResolver(jurisdictionsvc.ResolverParam{
			Log:        log,
			Repository: jurisdictionrepo.NewRepository(db),
			Cache:      lookupCache,
		}),
		RateRepo: raterepo.NewRepository(db),
		RuleRepo: rulerepo.NewRepository(db),
		Matcher: exemptionsvc.NewMatcher(exemptionsvc.MatcherParam{
			Log:        log,
			Repository: exemptionrepo.NewRepository(db),
		}),
		ExemptionRepo: exemptionrepo.NewRepository(db),
		NexusRepo:     nexusrepo.NewRepository(db),
		Cache:         lookupCache,
	})
	return svc, db
}

func seedCAJurisdictions(t *testing.T, db *gorm.DB) {
	t.Helper()
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: 1, Name: "California", Code: "US-CA", Type: jurisdictiondomain.TypeState,
		CountryCode: "US", StateCode: strPtr("CA"), EffectiveFrom: from, Active: true,
	}).Error)
	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: 2, Name: "Los Angeles County", Code: "US-CA-LA", Type: jurisdictiondomain.TypeCounty,
		CountryCode: "US", StateCode: strPtr("CA"), CountyName: strPtr("Los Angeles"),
		EffectiveFrom: from, Active: true,
	}).Error)
}

func seedRate(t *testing.T, db *gorm.DB, r ratedomain.Rate) {
	t.Helper()
	if r.EffectiveFrom.IsZero() {
		r.EffectiveFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if r.Method == "" {
		r.Method = ratedomain.MethodPercentage
	}
	r.Active = true
	require.NoError(t, db.Create(&r).Error)
}

func caLocation() jurisdictiondomain.Location {
	return jurisdictiondomain.Location{
		CountryCode: "US",
		StateCode:   "CA",
		CountyName:  "Los Angeles",
	}
}

func singleLineRequest(amount string) calcdomain.Request {
	return calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "line-1", Amount: dec(amount), Quantity: dec("1")},
		},
	}
}

func TestCalculateCombinedJurisdictionRates(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})
	seedRate(t, db, ratedomain.Rate{ID: 11, JurisdictionID: 2, Name: "LA County Sales Tax", TaxType: "sales", Percentage: dec("1.00")})

	resp, err := svc.Calculate(context.Background(), singleLineRequest("100.00"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.CalculationID)
	assert.True(t, resp.Subtotal.Equal(dec("100.00")))
	assert.True(t, resp.TotalTax.Equal(dec("8.25")), "got %s", resp.TotalTax)
	assert.True(t, resp.TotalAmount.Equal(dec("108.25")), "got %s", resp.TotalAmount)

	require.Len(t, resp.Lines, 1)
	line := resp.Lines[0]
	require.Len(t, line.Details, 2)
	assert.True(t, line.TaxableAmount.Equal(dec("100.00")))
	assert.True(t, line.EffectiveRate.Equal(dec("8.25")), "got %s", line.EffectiveRate)

	require.Contains(t, resp.Summary, "California")
	assert.True(t, resp.Summary["California"]["sales"].Equal(dec("7.25")))
	require.Contains(t, resp.Summary, "Los Angeles County")
	assert.True(t, resp.Summary["Los Angeles County"]["sales"].Equal(dec("1.00")))
}

func TestCalculateTenantScopedRates(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})
	seedRate(t, db, ratedomain.Rate{ID: 11, JurisdictionID: 2, TenantID: idPtr(77), Name: "Negotiated County Rate", TaxType: "sales", Percentage: dec("1.00")})

	// Global callers only see the global rate.
	resp, err := svc.Calculate(context.Background(), singleLineRequest("100.00"))
	require.NoError(t, err)
	assert.True(t, resp.TotalTax.Equal(dec("7.25")), "got %s", resp.TotalTax)

	// The owning tenant gets the global rate plus its own.
	scoped := tenantctx.WithTenant(context.Background(), 77)
	resp, err = svc.Calculate(scoped, singleLineRequest("100.00"))
	require.NoError(t, err)
	assert.True(t, resp.TotalTax.Equal(dec("8.25")), "got %s", resp.TotalTax)

	// Other tenants never see it.
	other := tenantctx.WithTenant(context.Background(), 88)
	resp, err = svc.Calculate(other, singleLineRequest("100.00"))
	require.NoError(t, err)
	assert.True(t, resp.TotalTax.Equal(dec("7.25")), "got %s", resp.TotalTax)
}

func TestCalculateSummaryMatchesTotal(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})
	seedRate(t, db, ratedomain.Rate{ID: 11, JurisdictionID: 2, Name: "LA County Sales Tax", TaxType: "sales", Percentage: dec("1.00")})

	req := calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "a", Amount: dec("19.99"), Quantity: dec("3")},
			{ID: "b", Amount: dec("5.47"), Quantity: dec("1")},
		},
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	lineSum := decimal.Zero
	for _, line := range resp.Lines {
		lineSum = lineSum.Add(line.TotalTax)
	}
	assert.True(t, lineSum.Equal(resp.TotalTax), "lines %s vs total %s", lineSum, resp.TotalTax)

	summarySum := decimal.Zero
	for _, byType := range resp.Summary {
		for _, amount := range byType {
			summarySum = summarySum.Add(amount)
		}
	}
	assert.True(t, summarySum.Equal(resp.TotalTax), "summary %s vs total %s", summarySum, resp.TotalTax)
}

func TestCalculateMinThresholdReportsZeroTaxable(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{
		ID: 10, JurisdictionID: 1, Name: "Luxury Tax", TaxType: "luxury",
		Percentage: dec("10"), MinTaxableAmount: decPtr("1000"),
	})

	resp, err := svc.Calculate(context.Background(), singleLineRequest("500.00"))
	require.NoError(t, err)

	require.Len(t, resp.Lines, 1)
	line := resp.Lines[0]
	assert.True(t, line.TotalTax.IsZero())
	assert.True(t, line.TaxableAmount.IsZero(), "zero-tax line reports zero taxable, got %s", line.TaxableAmount)
	assert.True(t, resp.TotalTax.IsZero())
}

func TestCalculateExemptFlaggedLine(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	req := calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "taxed", Amount: dec("100.00"), Quantity: dec("1")},
			{ID: "exempt", Amount: dec("50.00"), Quantity: dec("1"), IsExempt: true},
		},
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Lines, 2)
	exemptLine := resp.Lines[1]
	assert.Equal(t, "exempt", exemptLine.ExemptReason)
	assert.True(t, exemptLine.TotalTax.IsZero())
	require.Len(t, exemptLine.Details, 1)
	assert.Equal(t, "exempt", exemptLine.Details[0].Reason)

	assert.True(t, resp.TaxableAmount.Equal(dec("100.00")))
	assert.True(t, resp.ExemptAmount.Equal(dec("50.00")))
	assert.True(t, resp.TotalTax.Equal(dec("7.25")))
}

func TestCalculateNoJurisdictionsZeroTax(t *testing.T) {
	svc, _ := setupCalc(t)

	req := calcdomain.Request{
		Location:        jurisdictiondomain.Location{CountryCode: "ZZ"},
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "line-1", Amount: dec("100.00"), Quantity: dec("1")},
		},
		ShippingAmount: dec("10.00"),
		DiscountAmount: dec("5.00"),
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.TotalTax.IsZero())
	assert.True(t, resp.ExemptAmount.Equal(dec("100.00")))
	assert.True(t, resp.TotalAmount.Equal(dec("105.00")), "got %s", resp.TotalAmount)

	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, calcdomain.WarnNoJurisdictions, resp.Warnings[0].Code)
	assert.Equal(t, calcdomain.MsgNoJurisdictions, resp.Warnings[0].Message)
}

func TestCalculateCertificateExemptsAndRecordsUsage(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	require.NoError(t, db.Create(&exemptiondomain.ExemptionCertificate{
		ID: 50, CustomerID: 500, CertificateNumber: "CERT-050",
		JurisdictionIDs: []snowflake.ID{1}, TaxTypes: []string{exemptiondomain.TaxTypeAll},
		Verified: true, Active: true,
		EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	req := singleLineRequest("100.00")
	req.CustomerID = idPtr(500)

	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "exemption_certificate", resp.Lines[0].ExemptReason)
	assert.True(t, resp.TotalTax.IsZero())
	assert.True(t, resp.ExemptAmount.Equal(dec("100.00")))

	// Usage side effect executed after the calculation.
	var cert exemptiondomain.ExemptionCertificate
	require.NoError(t, db.First(&cert, "id = ?", 50).Error)
	assert.Equal(t, int64(1), cert.UsageCount)
	require.NotNil(t, cert.LastUsedAt)
}

func TestCalculateCertificateExpiryWarning(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	soon := testNow.Add(10 * 24 * time.Hour)
	require.NoError(t, db.Create(&exemptiondomain.ExemptionCertificate{
		ID: 51, CustomerID: 500, CertificateNumber: "CERT-051",
		JurisdictionIDs: []snowflake.ID{1}, TaxTypes: []string{exemptiondomain.TaxTypeAll},
		Verified: true, Active: true,
		EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:     &soon,
	}).Error)

	req := singleLineRequest("100.00")
	req.CustomerID = idPtr(500)

	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	var codes []string
	for _, w := range resp.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, calcdomain.WarnCertificateExpiring)
}

func TestCalculateCompoundTaxOrder(t *testing.T) {
	svc, db := setupCalc(t)
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: 3, Name: "Canada", Code: "CA", Type: jurisdictiondomain.TypeFederal,
		CountryCode: "CA", EffectiveFrom: from, Active: true,
	}).Error)
	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: 4, Name: "Quebec", Code: "CA-QC", Type: jurisdictiondomain.TypeState,
		CountryCode: "CA", StateCode: strPtr("QC"), EffectiveFrom: from, Active: true,
	}).Error)

	// QST compounds on GST even though its row sorts first by ordering.
	seedRate(t, db, ratedomain.Rate{
		ID: 20, JurisdictionID: 4, Name: "QST", TaxType: "qst",
		Percentage: dec("9.975"), CompoundOn: []string{"gst"}, Ordering: 0,
	})
	seedRate(t, db, ratedomain.Rate{
		ID: 21, JurisdictionID: 3, Name: "GST", TaxType: "gst",
		Percentage: dec("5"), Ordering: 1,
	})

	req := calcdomain.Request{
		Location:        jurisdictiondomain.Location{CountryCode: "CA", StateCode: "QC"},
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "line-1", Amount: dec("100.00"), Quantity: dec("1")},
		},
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	// GST 5.00, then QST on 105.00 = 10.47.
	require.Len(t, resp.Lines, 1)
	require.Len(t, resp.Lines[0].Details, 2)
	assert.Equal(t, "gst", resp.Lines[0].Details[0].TaxType)
	assert.True(t, resp.Lines[0].Details[0].Amount.Equal(dec("5.00")))
	assert.Equal(t, "qst", resp.Lines[0].Details[1].TaxType)
	assert.True(t, resp.Lines[0].Details[1].Amount.Equal(dec("10.47")), "got %s", resp.Lines[0].Details[1].Amount)
	assert.True(t, resp.TotalTax.Equal(dec("15.47")))
}

func TestCalculateDiscountDistributesProportionally(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("10")})

	req := calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "a", Amount: dec("60.00"), Quantity: dec("1")},
			{ID: "b", Amount: dec("40.00"), Quantity: dec("1")},
		},
		DiscountAmount: dec("10.00"),
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	// Factor 0.9: bases 54 and 36, tax 5.40 + 3.60 = 9.00.
	assert.True(t, resp.Lines[0].TotalTax.Equal(dec("5.40")), "got %s", resp.Lines[0].TotalTax)
	assert.True(t, resp.Lines[1].TotalTax.Equal(dec("3.60")), "got %s", resp.Lines[1].TotalTax)
	assert.True(t, resp.TotalTax.Equal(dec("9.00")))
	// 100 - 10 + 9.
	assert.True(t, resp.TotalAmount.Equal(dec("99.00")), "got %s", resp.TotalAmount)
}

func TestCalculateShippingTaxedSeparately(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("10")})

	req := singleLineRequest("100.00")
	req.ShippingAmount = dec("20.00")

	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.ShippingTax.Equal(dec("2.00")), "got %s", resp.ShippingTax)
	assert.True(t, resp.TotalTax.Equal(dec("12.00")))
	// Shipping is not one of the item lines.
	assert.Len(t, resp.Lines, 1)
	// 100 + 20 + 12.
	assert.True(t, resp.TotalAmount.Equal(dec("132.00")), "got %s", resp.TotalAmount)
}

func TestCalculateRuleExemptionByCategory(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	require.NoError(t, db.Create(&ruledomain.RuleConfiguration{
		ID: 30, JurisdictionID: 1, Name: "Grocery Exemption", TaxType: "sales",
		Conditions: []ruledomain.Condition{
			{Field: "category", Operator: ruledomain.OpEq, Value: "food"},
		},
		Actions:       []ruledomain.Action{{Kind: ruledomain.ActionExempt}},
		Priority:      100,
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}).Error)

	req := calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "groceries", Amount: dec("50.00"), Quantity: dec("1"), Category: "food"},
			{ID: "gadget", Amount: dec("100.00"), Quantity: dec("1"), Category: "electronics"},
		},
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "rule_exemption", resp.Lines[0].ExemptReason)
	assert.True(t, resp.Lines[0].TotalTax.IsZero())
	require.Len(t, resp.Lines[0].AppliedRules, 1)
	assert.Equal(t, "Grocery Exemption", resp.Lines[0].AppliedRules[0].RuleName)

	assert.Empty(t, resp.Lines[1].ExemptReason)
	assert.True(t, resp.Lines[1].TotalTax.Equal(dec("7.25")))
}

func TestCalculateCategoryRestrictedRate(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{
		ID: 10, JurisdictionID: 1, Name: "Liquor Tax", TaxType: "excise",
		Percentage: dec("15"), AppliesTo: []string{"alcohol"},
	})

	req := calcdomain.Request{
		Location:        caLocation(),
		TransactionDate: testNow,
		Lines: []calcdomain.LineItem{
			{ID: "wine", Amount: dec("30.00"), Quantity: dec("1"), Category: "alcohol"},
			{ID: "bread", Amount: dec("5.00"), Quantity: dec("1"), Category: "food"},
		},
	}
	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.Lines[0].TotalTax.Equal(dec("4.50")), "got %s", resp.Lines[0].TotalTax)
	assert.True(t, resp.Lines[1].TotalTax.IsZero())
}

func TestCalculateNoActiveRateWarning(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	// Rate only for the state; the county resolves with none.
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	resp, err := svc.Calculate(context.Background(), singleLineRequest("100.00"))
	require.NoError(t, err)

	var codes []string
	for _, w := range resp.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, calcdomain.WarnNoActiveRate)
}

func TestCalculateNexusFilingWarning(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})
	seedRate(t, db, ratedomain.Rate{ID: 11, JurisdictionID: 2, Name: "LA County Sales Tax", TaxType: "sales", Percentage: dec("1.00")})

	require.NoError(t, db.Create(&nexusdomain.FilingObligation{
		ID: 60, JurisdictionID: 1, Frequency: "monthly",
		NextDueAt: testNow.Add(3 * 24 * time.Hour), Active: true,
	}).Error)
	// Outside the 7-day window: no warning.
	require.NoError(t, db.Create(&nexusdomain.FilingObligation{
		ID: 61, JurisdictionID: 2, Frequency: "quarterly",
		NextDueAt: testNow.Add(60 * 24 * time.Hour), Active: true,
	}).Error)

	resp, err := svc.Calculate(context.Background(), singleLineRequest("100.00"))
	require.NoError(t, err)

	var filings int
	for _, w := range resp.Warnings {
		if w.Code == calcdomain.WarnNexusFilingDue {
			filings++
		}
	}
	assert.Equal(t, 1, filings)
}

func TestCalculateValidatesRequest(t *testing.T) {
	svc, _ := setupCalc(t)

	_, err := svc.Calculate(context.Background(), calcdomain.Request{
		Location: caLocation(),
	})
	require.ErrorIs(t, err, calcdomain.ErrNoLines)

	_, err = svc.Calculate(context.Background(), calcdomain.Request{
		Location: caLocation(),
		Lines:    []calcdomain.LineItem{{ID: "x", Amount: dec("-1"), Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, calcdomain.ErrNegativeAmount)
}

func TestCalculateDefaultsDateToClock(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})

	req := singleLineRequest("100.00")
	req.TransactionDate = time.Time{}

	resp, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.TotalTax.Equal(dec("7.25")))
}

func TestCalculateCompoundCycleFails(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{
		ID: 10, JurisdictionID: 1, Name: "A", TaxType: "a",
		Percentage: dec("5"), CompoundOn: []string{"b"},
	})
	seedRate(t, db, ratedomain.Rate{
		ID: 11, JurisdictionID: 1, Name: "B", TaxType: "b",
		Percentage: dec("5"), CompoundOn: []string{"a"},
	})

	_, err := svc.Calculate(context.Background(), singleLineRequest("100.00"))
	require.Error(t, err)
	assert.True(t, calcdomain.IsComputationError(err))
	require.ErrorIs(t, err, ratedomain.ErrCompoundCycle)
}

func TestApplicableRates(t *testing.T) {
	svc, db := setupCalc(t)
	seedCAJurisdictions(t, db)
	seedRate(t, db, ratedomain.Rate{ID: 10, JurisdictionID: 1, Name: "CA Sales Tax", TaxType: "sales", Percentage: dec("7.25")})
	seedRate(t, db, ratedomain.Rate{ID: 11, JurisdictionID: 2, Name: "LA County Sales Tax", TaxType: "sales", Percentage: dec("1.00")})

	infos, err := svc.ApplicableRates(context.Background(), caLocation(), testNow)
	require.NoError(t, err)

	require.Len(t, infos, 2)
	byName := make(map[string]calcdomain.RateInfo, len(infos))
	for _, info := range infos {
		byName[info.RateName] = info
	}
	ca := byName["CA Sales Tax"]
	assert.Equal(t, "California", ca.JurisdictionName)
	assert.Equal(t, "state", ca.JurisdictionType)
	assert.True(t, ca.Percentage.Equal(dec("7.25")))

	none, err := svc.ApplicableRates(context.Background(), jurisdictiondomain.Location{CountryCode: "ZZ"}, testNow)
	require.NoError(t, err)
	assert.Empty(t, none)
}
