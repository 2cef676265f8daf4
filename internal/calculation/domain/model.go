package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
)

// LineItem is one purchasable line of a calculation request.
type LineItem struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"` // unit price
	Quantity    decimal.Decimal `json:"quantity"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	IsExempt    bool            `json:"is_exempt,omitempty"`
}

// BaseAmount is the line's taxable base before any adjustment. A zero
// quantity counts as one unit.
func (li LineItem) BaseAmount() decimal.Decimal {
	qty := li.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return li.Amount.Mul(qty)
}

// Request is a transient tax calculation request. Constructed by the
// caller, consumed once, never mutated after creation.
type Request struct {
	Location        jurisdictiondomain.Location `json:"location"`
	TransactionDate time.Time                   `json:"transaction_date"`
	Lines           []LineItem                  `json:"lines"`
	ShippingAmount  decimal.Decimal             `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal             `json:"discount_amount"`

	CustomerID    *snowflake.ID `json:"customer_id,omitempty"`
	CertificateID *snowflake.ID `json:"certificate_id,omitempty"`
}

func (r Request) Validate() error {
	if len(r.Lines) == 0 {
		return ErrNoLines
	}
	for _, line := range r.Lines {
		if line.Amount.IsNegative() {
			return ErrNegativeAmount
		}
		if line.Quantity.IsNegative() {
			return ErrNegativeQuantity
		}
	}
	if r.ShippingAmount.IsNegative() {
		return ErrNegativeShipping
	}
	if r.DiscountAmount.IsNegative() {
		return ErrNegativeDiscount
	}
	return nil
}

// TaxDetail is one (jurisdiction, rate) application on a line.
type TaxDetail struct {
	JurisdictionID   snowflake.ID    `json:"jurisdiction_id"`
	JurisdictionName string          `json:"jurisdiction_name"`
	JurisdictionType string          `json:"jurisdiction_type"`
	RateID           snowflake.ID    `json:"rate_id,omitempty"`
	TaxType          string          `json:"tax_type,omitempty"`
	Method           string          `json:"calculation_method,omitempty"`
	Percentage       decimal.Decimal `json:"percentage"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason,omitempty"`
}

// AppliedRuleRef records a rule configuration that adjusted a line.
type AppliedRuleRef struct {
	RuleID   snowflake.ID `json:"rule_id"`
	RuleName string       `json:"rule_name"`
}

// LineResult is the per-line outcome.
type LineResult struct {
	LineID        string           `json:"line_id"`
	BaseAmount    decimal.Decimal  `json:"base_amount"`
	TaxableAmount decimal.Decimal  `json:"taxable_amount"`
	TotalTax      decimal.Decimal  `json:"total_tax"`
	EffectiveRate decimal.Decimal  `json:"effective_rate"`
	ExemptReason  string           `json:"exempt_reason,omitempty"`
	Details       []TaxDetail      `json:"details"`
	AppliedRules  []AppliedRuleRef `json:"applied_rules,omitempty"`
}

// Warning is a non-fatal advisory attached to a response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnNoJurisdictions     = "no_jurisdictions"
	WarnNoActiveRate        = "no_active_rate"
	WarnCertificateExpiring = "certificate_expiring"
	WarnNexusFilingDue      = "nexus_filing_due"
)

// MsgNoJurisdictions is the advisory attached to a zero-tax response
// when nothing resolves for the request location.
const MsgNoJurisdictions = "No applicable tax jurisdictions found for this location"

// SideEffectKind enumerates the side effects a calculation intends.
type SideEffectKind string

const (
	SideEffectMarkCertificateUsed SideEffectKind = "mark_certificate_used"
)

// SideEffect is an intended write the caller executes after the pure
// calculation completes. Execution failure must not discard the result.
type SideEffect struct {
	Kind          SideEffectKind `json:"kind"`
	CertificateID snowflake.ID   `json:"certificate_id"`
}

// Response is the jurisdiction-attributed calculation result.
type Response struct {
	CalculationID string `json:"calculation_id"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	ExemptAmount   decimal.Decimal `json:"exempt_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	ShippingTax    decimal.Decimal `json:"shipping_tax"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Lines []LineResult `json:"lines"`

	// Summary keys jurisdiction name → tax type → amount.
	Summary map[string]map[string]decimal.Decimal `json:"summary"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// RateInfo is the admin/reporting view of one applicable rate.
type RateInfo struct {
	RateID           snowflake.ID     `json:"rate_id"`
	JurisdictionID   snowflake.ID     `json:"jurisdiction_id"`
	JurisdictionName string           `json:"jurisdiction_name"`
	JurisdictionCode string           `json:"jurisdiction_code"`
	JurisdictionType string           `json:"jurisdiction_type"`
	RateName         string           `json:"rate_name"`
	TaxType          string           `json:"tax_type"`
	Method           string           `json:"calculation_method"`
	Percentage       decimal.Decimal  `json:"percentage"`
	FlatAmount       *decimal.Decimal `json:"flat_amount,omitempty"`
	EffectiveFrom    time.Time        `json:"effective_from"`
	EffectiveTo      *time.Time       `json:"effective_to,omitempty"`
}
