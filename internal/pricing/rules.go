package pricing

import (
	"fmt"
	"strings"
)

// Operator identifies how a matched rule adjusts the running price.
type Operator string

const (
	// OpAdd adds the rule amount to the running price.
	OpAdd Operator = "add"
	// OpMultiply multiplies the running price by the rule amount.
	OpMultiply Operator = "multiply"
	// OpSet replaces the running price with the rule amount.
	OpSet Operator = "set"
	// OpAddPercent adds amount percent of the running price at this point
	// in the sequence, not of the original base.
	OpAddPercent Operator = "add_percent"
	// OpFieldMultiply adds submitted-value × amount to the running price.
	OpFieldMultiply Operator = "field_multiply"
	// OpFieldAdd adds submitted-value + amount to the running price.
	OpFieldAdd Operator = "field_add"
)

// ParseOperator validates a stored operator string. Configurations carrying
// an unknown operator are rejected when saved, not silently skipped when
// evaluated.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpAdd, OpMultiply, OpSet, OpAddPercent, OpFieldMultiply, OpFieldAdd:
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// MatchAny is the wildcard match value: the rule matches any non-empty
// submitted value.
const MatchAny = "*"

// Rule is one conditional price adjustment keyed to a single form field.
type Rule struct {
	FieldID string   `json:"field_id"`
	Match   string   `json:"match_value"`
	Op      Operator `json:"operator"`
	Amount  float64  `json:"amount"`
}

// RuleConfig holds a base price and the ordered rule list applied to it.
// Order matters: a multiply after an add differs from the reverse.
type RuleConfig struct {
	BasePrice float64 `json:"base_price"`
	Rules     []Rule  `json:"rules"`
}

// Result is the outcome of a rule evaluation: the final clamped price and
// an ordered trace of every decision taken along the way. The trace is
// advisory only and never alters control flow.
type Result struct {
	Price float64
	Trace []string
}

// EvaluateRules applies cfg's rules in order to its base price using the
// submitted values. It is a pure function: identical inputs produce an
// identical price and trace, and concurrent calls are independent.
//
// Malformed input never fails the calculation. A missing field matches
// nothing, an unparseable numeric contributes zero, and the final price is
// rounded to two decimals and floored at zero.
func EvaluateRules(cfg RuleConfig, values FormValues) Result {
	price := cfg.BasePrice
	trace := []string{fmt.Sprintf("base price: %.2f", price)}

	if len(cfg.Rules) == 0 {
		final := ClampPrice(price)
		trace = append(trace, "no rules defined, returning base price")
		return Result{Price: final, Trace: trace}
	}

	for i, rule := range cfg.Rules {
		if rule.FieldID == "" {
			trace = append(trace, fmt.Sprintf("rule #%d: skipped (no field id)", i))
			continue
		}

		submitted := values[rule.FieldID]
		if !matches(rule.Match, submitted) {
			trace = append(trace, fmt.Sprintf("rule #%d: field=%s match=%q submitted=%q: no match",
				i, rule.FieldID, rule.Match, submitted.Joined()))
			continue
		}

		old := price
		price = applyOperator(price, rule, submitted)
		trace = append(trace, fmt.Sprintf("rule #%d: field=%s match=%q op=%s amount=%v: matched, price %.2f -> %.2f",
			i, rule.FieldID, rule.Match, rule.Op, rule.Amount, old, price))
	}

	final := ClampPrice(price)
	trace = append(trace, fmt.Sprintf("final price: %.2f", final))
	return Result{Price: final, Trace: trace}
}

// matches reports whether a rule's match value matches the submitted value.
// The wildcard matches any non-empty value; a blank match value matches a
// field the customer left blank or out of the submission entirely;
// otherwise the match value must equal the scalar or one element of a
// multi value, case-insensitively.
func matches(match string, submitted Value) bool {
	if match == MatchAny {
		return !submitted.IsEmpty()
	}
	if strings.TrimSpace(match) == "" {
		return submitted.IsBlankScalar()
	}
	return submitted.Contains(match)
}

func applyOperator(price float64, rule Rule, submitted Value) float64 {
	switch rule.Op {
	case OpAdd:
		return price + rule.Amount
	case OpMultiply:
		return price * rule.Amount
	case OpSet:
		return rule.Amount
	case OpAddPercent:
		return price + price*rule.Amount/100
	case OpFieldMultiply:
		return price + submitted.Numeric()*rule.Amount
	case OpFieldAdd:
		return price + submitted.Numeric() + rule.Amount
	}
	return price
}
