package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
)

// Payroll tax types aggregated in a breakdown.
const (
	TaxTypeFederal        = "federal"
	TaxTypeState          = "state"
	TaxTypeLocal          = "local"
	TaxTypeSocialSecurity = "social_security"
	TaxTypeMedicare       = "medicare"
	TaxTypeOther          = "other"
)

// PayrollTaxRule is the simplified, jurisdiction-agnostic withholding
// record: a rate, an optional employee/employer split, optional min/max
// taxable bounds, and the same activity-window invariant as sales rates.
//
// MaxTaxableAmount doubles as the statutory wage-base cap: with
// year-to-date earnings supplied, only the remaining headroom is taxed.
type PayrollTaxRule struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	TenantID *snowflake.ID `gorm:"index"`

	Name    string `gorm:"type:text;not null"`
	TaxType string `gorm:"type:text;not null;index"`

	CountryCode string  `gorm:"type:text;not null;index"`
	StateCode   *string `gorm:"type:text;index"`

	Rate            decimal.Decimal  `gorm:"type:numeric(10,5);not null"` // percent
	EmployeePortion *decimal.Decimal `gorm:"type:numeric(10,5)"`
	EmployerPortion *decimal.Decimal `gorm:"type:numeric(10,5)"`

	MinTaxableAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`
	MaxTaxableAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`

	EffectiveFrom time.Time  `gorm:"not null;index"`
	EffectiveTo   *time.Time `gorm:"index"`
	Active        bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayrollTaxRule) TableName() string { return "payroll_tax_rules" }

func (r *PayrollTaxRule) Validate() error {
	if r.Name == "" || r.TaxType == "" {
		return ErrInvalidRule
	}
	if r.Rate.IsNegative() || r.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidRate
	}
	if r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom) {
		return ErrInvalidWindow
	}
	return nil
}

// EffectiveRate is the employee portion when the rule splits the rate,
// otherwise the full rate.
func (r *PayrollTaxRule) EffectiveRate() decimal.Decimal {
	if r.EmployeePortion != nil {
		return *r.EmployeePortion
	}
	return r.Rate
}

// Input is one paycheck calculation request.
type Input struct {
	GrossPay decimal.Decimal
	PayDate  time.Time
	Location jurisdictiondomain.Location

	// YTD maps tax type to year-to-date earnings already taxed under
	// that type, used for wage-base-cap headroom. Missing entries mean
	// zero.
	YTD map[string]decimal.Decimal
}

func (in Input) Validate() error {
	if in.GrossPay.IsNegative() {
		return ErrNegativeGrossPay
	}
	if in.PayDate.IsZero() {
		return ErrMissingPayDate
	}
	return nil
}

// AppliedRule is one withholding line plus the metadata callers persist
// for their audit trail.
type AppliedRule struct {
	RuleID        snowflake.ID    `json:"rule_id"`
	RuleName      string          `json:"rule_name"`
	TaxType       string          `json:"tax_type"`
	Method        string          `json:"calculation_method"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	EmployeeTax   decimal.Decimal `json:"employee_tax"`
	EmployerTax   decimal.Decimal `json:"employer_tax"`
}

// Breakdown is the aggregated withholding result for one paycheck.
// Employer amounts are reported separately and never reduce net pay.
type Breakdown struct {
	GrossPay         decimal.Decimal            `json:"gross_pay"`
	TotalTax         decimal.Decimal            `json:"total_tax"`
	TotalEmployerTax decimal.Decimal            `json:"total_employer_tax"`
	NetPay           decimal.Decimal            `json:"net_pay"`
	ByType           map[string]decimal.Decimal `json:"by_type"`
	Applied          []AppliedRule              `json:"applied"`
}
