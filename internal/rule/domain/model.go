package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Operator is the closed set of condition operators. Unknown strings are
// rejected when a rule is decoded, never silently treated as no-ops.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpContains Operator = "contains"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpIn, OpNotIn, OpContains:
		return true
	default:
		return false
	}
}

func (o *Operator) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed := Operator(raw)
	if !parsed.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, raw)
	}
	*o = parsed
	return nil
}

// ActionKind is the closed set of rule actions.
type ActionKind string

const (
	ActionExempt     ActionKind = "exempt"
	ActionReduceRate ActionKind = "reduce_rate"
	ActionApplyRate  ActionKind = "apply_rate"
	ActionAddFee     ActionKind = "add_fee"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionExempt, ActionReduceRate, ActionApplyRate, ActionAddFee:
		return true
	default:
		return false
	}
}

func (k *ActionKind) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed := ActionKind(raw)
	if !parsed.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	*k = parsed
	return nil
}

// Condition is one predicate of a rule. All conditions of a rule must
// hold for its actions to apply. A field absent from the line context
// skips the rule, not an error.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Action adjusts the taxable base of a line. Parameters are kind-specific.
type Action struct {
	Kind ActionKind `json:"kind"`

	Percentage *decimal.Decimal `json:"percentage,omitempty"` // reduce_rate
	Rate       *decimal.Decimal `json:"rate,omitempty"`       // apply_rate
	Amount     *decimal.Decimal `json:"amount,omitempty"`     // add_fee
}

func (a Action) Validate() error {
	switch a.Kind {
	case ActionExempt:
		return nil
	case ActionReduceRate:
		if a.Percentage == nil {
			return fmt.Errorf("%w: reduce_rate requires percentage", ErrMissingActionParam)
		}
	case ActionApplyRate:
		if a.Rate == nil {
			return fmt.Errorf("%w: apply_rate requires rate", ErrMissingActionParam)
		}
	case ActionAddFee:
		if a.Amount == nil {
			return fmt.Errorf("%w: add_fee requires amount", ErrMissingActionParam)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
	return nil
}

// RuleConfiguration is a jurisdiction-published conditional rule. Higher
// priority evaluates first; equal priorities tie-break on id ascending,
// an explicit, stable order, not "whatever the store returned".
type RuleConfiguration struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	JurisdictionID snowflake.ID  `gorm:"not null;index"`
	TenantID       *snowflake.ID `gorm:"index"`

	Name    string `gorm:"type:text;not null"`
	TaxType string `gorm:"type:text;not null;index"`

	Conditions datatypes.JSONSlice[Condition] `gorm:"type:json"`
	Actions    datatypes.JSONSlice[Action]    `gorm:"type:json"`

	Priority int `gorm:"not null;default:0;index"`

	EffectiveFrom time.Time  `gorm:"not null;index"`
	EffectiveTo   *time.Time `gorm:"index"`
	Active        bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RuleConfiguration) TableName() string { return "tax_rule_configurations" }

func (r *RuleConfiguration) Validate() error {
	if r.Name == "" {
		return ErrInvalidName
	}
	for _, c := range r.Conditions {
		if !c.Operator.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
		}
	}
	if len(r.Actions) == 0 {
		return ErrMissingActions
	}
	for _, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom) {
		return ErrInvalidWindow
	}
	return nil
}
