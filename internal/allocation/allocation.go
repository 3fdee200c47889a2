// Package allocation splits one payment across several records.
//
// Every function here is pure: inputs are copied, never mutated, and no
// function returns an error for well-typed input. Callers surface invalid
// states (too few targets, unbalanced totals) through ValidateBatch and
// ReconcileDelta.
package allocation

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Policy string

const (
	PolicyEqual      Policy = "equal"
	PolicyManual     Policy = "manual"
	PolicyWeight     Policy = "weight"
	PolicyPercentage Policy = "percentage"
)

var ErrTooFewTargets = errors.New("bulk allocation needs at least 2 targets")

// DefaultFallbackWeight is used for a target whose weight is unknown
// (e.g. no headcount recorded). Override it through Options.FallbackWeight.
var DefaultFallbackWeight = decimal.NewFromInt(100)

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.New(1, -2)
)

// Target is one record taking part in an allocation batch.
type Target struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
}

// Options carries the values a policy may reuse from an earlier computation.
type Options struct {
	FallbackWeight   decimal.Decimal
	PriorAmounts     map[string]decimal.Decimal
	PriorPercentages map[string]decimal.Decimal
}

// ParsePolicy accepts the policy names used by the clients, "plates" being
// the older name of the weight policy.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal":
		return PolicyEqual, true
	case "manual":
		return PolicyManual, true
	case "weight", "plates", "by_plates":
		return PolicyWeight, true
	case "percentage", "percent":
		return PolicyPercentage, true
	}
	return "", false
}

// ValidateBatch enforces the bulk-mode precondition.
func ValidateBatch(targets []Target) error {
	if len(targets) < 2 {
		return ErrTooFewTargets
	}
	return nil
}

// Allocate dispatches to the policy. An unknown policy leaves the targets unchanged.
func Allocate(policy Policy, total decimal.Decimal, targets []Target, opts Options) []Target {
	switch policy {
	case PolicyEqual:
		return Equal(total, targets)
	case PolicyWeight:
		return ByWeight(total, targets, opts.FallbackWeight)
	case PolicyPercentage:
		return ByPercentage(total, targets, opts.PriorPercentages)
	case PolicyManual:
		return Manual(targets, opts.PriorAmounts)
	}
	return clone(targets)
}

// Equal gives every target total/count rounded to cents. The last target
// absorbs whatever rounding left over, so the amounts always add up to total.
func Equal(total decimal.Decimal, targets []Target) []Target {
	out := clone(targets)
	if len(out) == 0 {
		return out
	}

	share := total.Div(decimal.NewFromInt(int64(len(out)))).Round(2)
	for i := range out {
		out[i].Amount = share
		out[i].Percentage = nil
	}

	absorbRemainder(total, out)
	return out
}

// ByWeight splits total proportionally to each target's weight (plates,
// members). A missing or non-positive weight counts as fallbackWeight; a
// non-positive fallbackWeight means DefaultFallbackWeight. The resolved
// weight and percentage are recorded on every target.
func ByWeight(total decimal.Decimal, targets []Target, fallbackWeight decimal.Decimal) []Target {
	out := clone(targets)
	if len(out) == 0 {
		return out
	}
	if !fallbackWeight.IsPositive() {
		fallbackWeight = DefaultFallbackWeight
	}

	weights := make([]decimal.Decimal, len(out))
	sum := decimal.Zero
	for i, t := range out {
		w := fallbackWeight
		if t.Weight != nil && t.Weight.IsPositive() {
			w = *t.Weight
		}
		weights[i] = w
		sum = sum.Add(w)
	}

	for i := range out {
		w := weights[i]
		pct := w.Mul(hundred).Div(sum).Round(2)

		out[i].Weight = &w
		out[i].Percentage = &pct
		out[i].Amount = total.Mul(w).Div(sum).Round(2)
	}

	absorbRemainder(total, out)
	return out
}

// ByPercentage keeps a percentage already known for a target (from prior,
// then from the target itself); new targets get 100/count. Percentages are
// not renormalised to 100, see PercentageTotal.
func ByPercentage(total decimal.Decimal, targets []Target, prior map[string]decimal.Decimal) []Target {
	out := clone(targets)
	if len(out) == 0 {
		return out
	}

	def := hundred.Div(decimal.NewFromInt(int64(len(out)))).Round(2)
	for i := range out {
		pct := def
		if p, ok := prior[out[i].ID]; ok {
			pct = p
		} else if out[i].Percentage != nil {
			pct = *out[i].Percentage
		}

		out[i].Percentage = &pct
		out[i].Amount = total.Mul(pct).Div(hundred).Round(2)
	}
	return out
}

// Manual keeps previously entered amounts and starts new targets at zero.
// Nothing is reconciled; callers show ReconcileDelta instead.
func Manual(targets []Target, prior map[string]decimal.Decimal) []Target {
	out := clone(targets)
	for i := range out {
		out[i].Amount = decimal.Zero
		if a, ok := prior[out[i].ID]; ok {
			out[i].Amount = a
		}
		out[i].Percentage = nil
	}
	return out
}

// ReconcileDelta is total minus the allocated sum, in cents. Positive means
// under-allocated, negative over-allocated.
func ReconcileDelta(total decimal.Decimal, targets []Target) decimal.Decimal {
	return total.Sub(Sum(targets)).Round(2)
}

// Balanced reports whether a delta is within one cent.
func Balanced(delta decimal.Decimal) bool {
	return delta.Abs().LessThanOrEqual(tolerance)
}

func Sum(targets []Target) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// PercentageTotal adds up the recorded percentages (targets without one count as zero).
func PercentageTotal(targets []Target) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		if t.Percentage != nil {
			sum = sum.Add(*t.Percentage)
		}
	}
	return sum.Round(2)
}

// Summary is what a client needs to display an allocation before saving it.
type Summary struct {
	Policy          Policy          `json:"policy"`
	Total           decimal.Decimal `json:"total"`
	Targets         []Target        `json:"targets"`
	Delta           decimal.Decimal `json:"delta"`
	Balanced        bool            `json:"balanced"`
	PercentageTotal decimal.Decimal `json:"percentageTotal"`
}

func Summarize(policy Policy, total decimal.Decimal, targets []Target) Summary {
	delta := ReconcileDelta(total, targets)
	return Summary{
		Policy:          policy,
		Total:           total,
		Targets:         targets,
		Delta:           delta,
		Balanced:        Balanced(delta),
		PercentageTotal: PercentageTotal(targets),
	}
}

func absorbRemainder(total decimal.Decimal, out []Target) {
	last := len(out) - 1
	others := decimal.Zero
	for _, t := range out[:last] {
		others = others.Add(t.Amount)
	}
	out[last].Amount = total.Sub(others)
}

func clone(targets []Target) []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	return out
}
