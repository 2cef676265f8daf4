package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Common tax types. The column is free text so jurisdictions can publish
// their own keys; these constants cover the ones the engine ships with.
const (
	TaxTypeSales  = "sales"
	TaxTypeUse    = "use"
	TaxTypeExcise = "excise"
	TaxTypeVAT    = "vat"
	TaxTypeGST    = "gst"
)

// CalculationMethod selects how a rate turns a taxable base into tax.
type CalculationMethod string

const (
	MethodPercentage CalculationMethod = "percentage"
	MethodFlat       CalculationMethod = "flat"

	// MethodTiered is accepted but currently computed with the
	// percentage formula. True bracket math is an open gap pending
	// product confirmation; do not silently change the behavior.
	MethodTiered CalculationMethod = "tiered"
)

func (m CalculationMethod) Valid() bool {
	switch m {
	case MethodPercentage, MethodFlat, MethodTiered:
		return true
	default:
		return false
	}
}

// Rate is one time-bounded tax rate published by a jurisdiction.
//
// At most one active rate may exist per (jurisdiction, tax_type,
// tax_subtype, tax_category) key with overlapping windows. The owning
// store enforces that invariant; the engine assumes it.
type Rate struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	JurisdictionID snowflake.ID  `gorm:"not null;index"`
	TenantID       *snowflake.ID `gorm:"index"`

	Name        string  `gorm:"type:text;not null"`
	TaxType     string  `gorm:"type:text;not null;index"`
	TaxSubtype  *string `gorm:"type:text"`
	TaxCategory *string `gorm:"type:text"`

	Method     CalculationMethod `gorm:"type:text;not null"`
	Percentage decimal.Decimal   `gorm:"type:numeric(10,5);not null;default:0"` // 0-100
	FlatAmount *decimal.Decimal  `gorm:"type:numeric(14,2)"`

	MinTaxableAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`
	MaxTaxableAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`

	// CompoundOn lists tax-type keys whose computed amounts join the
	// calculation base before this rate applies (tax on tax).
	CompoundOn datatypes.JSONSlice[string] `gorm:"type:json"`

	// AppliesTo restricts the rate to item categories. Empty means all.
	AppliesTo datatypes.JSONSlice[string] `gorm:"type:json"`

	// ExemptCategories lists item categories the rate never applies to.
	ExemptCategories datatypes.JSONSlice[string] `gorm:"type:json"`

	Ordering int `gorm:"not null;default:0"`

	EffectiveFrom time.Time  `gorm:"not null;index"`
	EffectiveTo   *time.Time `gorm:"index"`
	Active        bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Rate) TableName() string { return "tax_rates" }

func (r *Rate) Validate() error {
	if !r.Method.Valid() {
		return ErrInvalidMethod
	}
	if r.Percentage.IsNegative() || r.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidPercentage
	}
	if r.Method == MethodFlat && r.FlatAmount == nil {
		return ErrMissingFlatAmount
	}
	if r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom) {
		return ErrInvalidWindow
	}
	return nil
}

// AppliesToCategory reports whether the rate is compatible with an item
// category, honoring AppliesTo and ExemptCategories.
func (r *Rate) AppliesToCategory(category string) bool {
	for _, c := range r.ExemptCategories {
		if c == category {
			return false
		}
	}
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, c := range r.AppliesTo {
		if c == category {
			return true
		}
	}
	return false
}
