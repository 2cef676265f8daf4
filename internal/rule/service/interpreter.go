package service

import (
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ruledomain "github.com/smallbiznis/taxflow/internal/rule/domain"
)

var hundred = decimal.NewFromInt(100)

// LineContext exposes the fields of a line item and its enclosing
// request to rule conditions.
type LineContext struct {
	// BaseAmount is the original taxable base of the line (amount ×
	// quantity) before any rule adjustment. apply_rate actions replace
	// against this base.
	BaseAmount decimal.Decimal

	// Fields maps condition field names to values. A condition naming a
	// field absent here skips its rule.
	Fields map[string]any
}

// AppliedRule records one rule that matched, for the caller's audit trail.
type AppliedRule struct {
	RuleID   snowflake.ID `json:"rule_id"`
	RuleName string       `json:"rule_name"`
}

// Result is the outcome of interpreting the rule set against one line.
type Result struct {
	TaxableAmount decimal.Decimal
	Exempt        bool
	Applied       []AppliedRule
}

// Apply evaluates rule configurations against a line context and returns
// the adjusted taxable base.
//
// Rules evaluate in priority-descending order; equal priorities
// tie-break on id ascending. All conditions of a rule must hold for its
// actions to run; actions run in list order. An exempt action zeroes the
// base and terminates evaluation for the line.
func Apply(rules []ruledomain.RuleConfiguration, lineCtx LineContext) (Result, error) {
	ordered := make([]ruledomain.RuleConfiguration, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, k int) bool {
		if ordered[i].Priority != ordered[k].Priority {
			return ordered[i].Priority > ordered[k].Priority
		}
		return ordered[i].ID < ordered[k].ID
	})

	result := Result{TaxableAmount: lineCtx.BaseAmount}
	for _, rule := range ordered {
		if err := rule.Validate(); err != nil {
			return Result{}, err
		}
		if !conditionsHold(rule.Conditions, lineCtx.Fields) {
			continue
		}

		result.Applied = append(result.Applied, AppliedRule{RuleID: rule.ID, RuleName: rule.Name})
		for _, action := range rule.Actions {
			switch action.Kind {
			case ruledomain.ActionExempt:
				// Exemption is terminal.
				result.TaxableAmount = decimal.Zero
				result.Exempt = true
				return result, nil
			case ruledomain.ActionReduceRate:
				factor := hundred.Sub(*action.Percentage).Div(hundred)
				result.TaxableAmount = result.TaxableAmount.Mul(factor)
			case ruledomain.ActionApplyRate:
				result.TaxableAmount = lineCtx.BaseAmount.Mul(*action.Rate).Div(hundred)
			case ruledomain.ActionAddFee:
				result.TaxableAmount = result.TaxableAmount.Add(*action.Amount)
			}
		}
	}
	return result, nil
}

// conditionsHold reports whether every condition matches the context
// fields. A condition naming an unknown field fails the whole rule.
func conditionsHold(conditions []ruledomain.Condition, fields map[string]any) bool {
	for _, c := range conditions {
		value, ok := fields[c.Field]
		if !ok {
			return false
		}
		if !evaluate(c, value) {
			return false
		}
	}
	return true
}

func evaluate(c ruledomain.Condition, fieldValue any) bool {
	switch c.Operator {
	case ruledomain.OpEq:
		return valuesEqual(fieldValue, c.Value)
	case ruledomain.OpNe:
		return !valuesEqual(fieldValue, c.Value)
	case ruledomain.OpGt, ruledomain.OpLt, ruledomain.OpGte, ruledomain.OpLte:
		left, okL := toDecimal(fieldValue)
		right, okR := toDecimal(c.Value)
		if !okL || !okR {
			return false
		}
		switch c.Operator {
		case ruledomain.OpGt:
			return left.GreaterThan(right)
		case ruledomain.OpLt:
			return left.LessThan(right)
		case ruledomain.OpGte:
			return left.GreaterThanOrEqual(right)
		default:
			return left.LessThanOrEqual(right)
		}
	case ruledomain.OpIn:
		return inList(fieldValue, c.Value)
	case ruledomain.OpNotIn:
		list, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if valuesEqual(fieldValue, item) {
				return false
			}
		}
		return true
	case ruledomain.OpContains:
		return containsValue(fieldValue, c.Value)
	default:
		return false
	}
}

func inList(fieldValue, listValue any) bool {
	list, ok := listValue.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if valuesEqual(fieldValue, item) {
			return true
		}
	}
	return false
}

// valuesEqual compares numerically when both sides parse as numbers,
// otherwise case-insensitively as strings.
func valuesEqual(a, b any) bool {
	if left, ok := toDecimal(a); ok {
		if right, ok2 := toDecimal(b); ok2 {
			return left.Equal(right)
		}
	}
	return strings.EqualFold(toString(a), toString(b))
}

func containsValue(fieldValue, wanted any) bool {
	switch v := fieldValue.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(toString(wanted)))
	case []any:
		for _, item := range v {
			if valuesEqual(item, wanted) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if strings.EqualFold(item, toString(wanted)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch value := v.(type) {
	case decimal.Decimal:
		return value, true
	case float64:
		return decimal.NewFromFloat(value), true
	case float32:
		return decimal.NewFromFloat32(value), true
	case int:
		return decimal.NewFromInt(int64(value)), true
	case int64:
		return decimal.NewFromInt(value), true
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, false
		}
		return parsed, true
	default:
		return decimal.Zero, false
	}
}

func toString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case decimal.Decimal:
		return value.String()
	default:
		if d, ok := toDecimal(v); ok {
			return d.String()
		}
		return strings.TrimSpace(strings.ToLower(stringify(v)))
	}
}

func stringify(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return ""
}
