// Package alerts evaluates configurable stock alert rules written in CEL.
//
// Each rule is a boolean expression over one medicine. Available variables:
//
//	quantity               int
//	reorder_level          int
//	days_to_expiry         int   (negative once expired)
//	requires_prescription  bool
//	expiry_window_days     int
package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/cel-go/cel"

	"pharmledger/internal/domain/catalogs/medicine"
)

// Severity of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Built-in rule names.
const (
	RuleLowStock = "low_stock"
	RuleExpiring = "expiring"
	RuleExpired  = "expired"
)

// Rule is a named CEL expression.
type Rule struct {
	Name       string
	Expression string
	Severity   Severity
}

// DefaultRules returns the built-in rules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleLowStock, Expression: "quantity <= reorder_level", Severity: SeverityWarning},
		{Name: RuleExpiring, Expression: "days_to_expiry >= 0 && days_to_expiry <= expiry_window_days", Severity: SeverityWarning},
		{Name: RuleExpired, Expression: "days_to_expiry < 0", Severity: SeverityCritical},
	}
}

// MergeRules applies overrides by name to the defaults. Unknown names add
// new rules with info severity. Output is ordered by name after the defaults.
func MergeRules(defaults []Rule, overrides map[string]string) []Rule {
	out := make([]Rule, 0, len(defaults)+len(overrides))
	seen := make(map[string]bool, len(defaults))
	for _, r := range defaults {
		if expr, ok := overrides[r.Name]; ok && expr != "" {
			r.Expression = expr
		}
		seen[r.Name] = true
		out = append(out, r)
	}

	extra := make([]string, 0)
	for name := range overrides {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, Rule{Name: name, Expression: overrides[name], Severity: SeverityInfo})
	}
	return out
}

type compiledRule struct {
	Rule
	program cel.Program
}

// Engine holds compiled rules. It is safe for concurrent use.
type Engine struct {
	rules            []compiledRule
	expiryWindowDays int
}

// NewEngine compiles the rules. Expressions must evaluate to bool.
func NewEngine(rules []Rule, expiryWindowDays int) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.IntType),
		cel.Variable("reorder_level", cel.IntType),
		cel.Variable("days_to_expiry", cel.IntType),
		cel.Variable("requires_prescription", cel.BoolType),
		cel.Variable("expiry_window_days", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, iss := env.Compile(r.Expression)
		if iss.Err() != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, iss.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", r.Name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{Rule: r, program: prg})
	}
	return &Engine{rules: compiled, expiryWindowDays: expiryWindowDays}, nil
}

// Alert is one rule that fired for one medicine.
type Alert struct {
	Rule         string    `json:"rule"`
	Severity     Severity  `json:"severity"`
	MedicineID   string    `json:"medicineId"`
	MedicineName string    `json:"medicineName"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorderLevel"`
	ExpiryDate   time.Time `json:"expiryDate"`
	DaysToExpiry int       `json:"daysToExpiry"`
}

// Evaluate runs every rule against m.
func (e *Engine) Evaluate(m *medicine.Medicine, now time.Time) ([]Alert, error) {
	days := m.DaysToExpiry(now)
	vars := map[string]any{
		"quantity":              int64(m.Quantity),
		"reorder_level":         int64(m.ReorderLevel),
		"days_to_expiry":        int64(days),
		"requires_prescription": m.RequiresPrescription,
		"expiry_window_days":    int64(e.expiryWindowDays),
	}

	var fired []Alert
	for _, r := range e.rules {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("evaluate rule %q for %s: %w", r.Name, m.ID, err)
		}
		if hit, ok := out.Value().(bool); ok && hit {
			fired = append(fired, Alert{
				Rule:         r.Name,
				Severity:     r.Severity,
				MedicineID:   m.ID.String(),
				MedicineName: m.Name,
				Quantity:     m.Quantity,
				ReorderLevel: m.ReorderLevel,
				ExpiryDate:   m.ExpiryDate,
				DaysToExpiry: days,
			})
		}
	}
	return fired, nil
}

// Rules returns the configured rules.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Rule
	}
	return out
}
