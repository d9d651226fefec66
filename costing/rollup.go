/*
rollup.go - Volume-tier cost and price roll-up

PURPOSE:
  Computes, for each quantity tier of a single part quotation:
  labour cost (setup + run time x resource rate), material cost (with
  markup), subcon cost (tier-specific unit prices, with markup), total
  cost, cost per unit, and the unit price back-solved from the tier's
  target margin.

FORMULAS (per tier t):
  batchMinutes(t) = sum(setup_i) + t.quantity * sum(run_i)
  labourCost(t)   = sum over routing lines of (setup_i + t.quantity*run_i) * rate_i
  materialCost(t) = sum(costPerUnit_i * qtyPerUnit_i) * (1 + materialMarkup) * t.quantity
  subconCost(t)   = sum(costPerUnit_i where line.quantity == t.quantity)
                    * (1 + subconMarkup) * t.quantity
  unitPrice(t)    = (totalCost(t) / t.quantity) / (1 - margin/100)

MARGIN vs MARKUP:
  Markup is added to a cost basis. Margin is the share of the final price
  that should be profit, so price is back-solved by division: a 35% margin
  on a 14.02 unit cost gives 14.02 / 0.65 = 21.57, not 14.02 * 1.35.

VALIDATION:
  Zero tier quantities and margins >= 100 are rejected before any
  computation. When subcon lines exist, the distinct subcon quantities must
  match the tier quantities exactly; the source system silently priced
  unmatched tiers with zero subcon cost, which hid misaligned data.

SEE ALSO:
  - types.go: Input line item types
  - config.go: Markups, shop rate
*/
package costing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// RollupInput carries everything a roll-up needs. The caller loads line
// items and resource rates before invoking; the engine performs no I/O.
type RollupInput struct {
	Materials []MaterialLine
	Subcons   []SubconLine
	Routings  []RoutingLine
	Tiers     []QuantityTier

	// Rates maps a routing resource to its cost per minute. A missing
	// resource falls back to Config.CostPerHour and is reported in
	// RollupResult.RateFallbacks.
	Rates map[string]decimal.Decimal

	Config Config
}

// TierResult is the cost and price breakdown for one quantity tier.
type TierResult struct {
	Quantity      int64
	Hours         decimal.Decimal // batch minutes / 60
	LabourCost    decimal.Decimal
	MaterialCost  decimal.Decimal
	SubconCost    decimal.Decimal
	TotalCost     decimal.Decimal
	CostPerUnit   decimal.Decimal
	UnitPrice     decimal.Decimal
	MarginPercent decimal.Decimal
}

// RollupResult is the full roll-up output for a quotation.
type RollupResult struct {
	Tiers []TierResult

	// RateFallbacks lists op numbers whose resource had no configured rate
	// and was priced at Config.CostPerHour. A warning for the reviewer, not
	// a failure: the estimate's provenance stays visible on the quote.
	RateFallbacks []int
}

// UsedFallbackRate reports whether any routing line was priced at the
// configured default rate.
func (r *RollupResult) UsedFallbackRate() bool {
	return len(r.RateFallbacks) > 0
}

// =============================================================================
// ROLL-UP
// =============================================================================

// Rollup computes the per-tier cost breakdown for a part quotation.
// It validates all inputs before computing anything; a returned error means
// no partial results exist.
func Rollup(in RollupInput) (*RollupResult, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	if err := validateTiers(in.Tiers); err != nil {
		return nil, err
	}
	if err := validateLines(in); err != nil {
		return nil, err
	}
	if err := validateSubconAlignment(in.Subcons, in.Tiers); err != nil {
		return nil, err
	}

	// Single-part material cost, markup-free.
	materialCostRaw := decimal.Zero
	for _, m := range in.Materials {
		materialCostRaw = materialCostRaw.Add(m.Cost())
	}
	materialFactor := one().Add(in.Config.MaterialMarkupPercent.Div(hundred))

	// Subcon unit price per tier quantity, markup-free.
	subconPerUnit := make(map[int64]decimal.Decimal)
	for _, s := range in.Subcons {
		subconPerUnit[s.Quantity] = subconPerUnit[s.Quantity].Add(s.CostPerUnit)
	}
	subconFactor := one().Add(in.Config.SubconMarkupPercent.Div(hundred))

	// Resolve a per-minute rate for every routing line up front so the
	// fallback warning is independent of tier count.
	fallbackPerMinute := in.Config.CostPerHour.Div(sixty)
	rates := make([]decimal.Decimal, len(in.Routings))
	var fallbacks []int
	for i, r := range in.Routings {
		if rate, ok := in.Rates[r.ResourceID]; ok {
			rates[i] = rate
			continue
		}
		rates[i] = fallbackPerMinute
		fallbacks = append(fallbacks, r.OpNumber)
	}

	result := &RollupResult{
		Tiers:         make([]TierResult, 0, len(in.Tiers)),
		RateFallbacks: fallbacks,
	}

	for _, tier := range in.Tiers {
		qty := decimal.NewFromInt(tier.Quantity)

		batchMinutes := decimal.Zero
		labour := decimal.Zero
		for i, r := range in.Routings {
			lineMinutes := r.SetupMinutes.Add(qty.Mul(r.RunMinutes))
			batchMinutes = batchMinutes.Add(lineMinutes)
			labour = labour.Add(lineMinutes.Mul(rates[i]))
		}

		materialCost := materialCostRaw.Mul(materialFactor).Mul(qty)
		subconCost := subconPerUnit[tier.Quantity].Mul(subconFactor).Mul(qty)

		totalCost := labour.Add(materialCost).Add(subconCost)
		costPerUnit := totalCost.Div(qty)

		// price = cost / (1 - margin); margin >= 100 already rejected.
		marginFraction := one().Sub(tier.TargetMarginPercent.Div(hundred))
		unitPrice := costPerUnit.Div(marginFraction)

		result.Tiers = append(result.Tiers, TierResult{
			Quantity:      tier.Quantity,
			Hours:         batchMinutes.Div(sixty),
			LabourCost:    labour,
			MaterialCost:  materialCost,
			SubconCost:    subconCost,
			TotalCost:     totalCost,
			CostPerUnit:   costPerUnit,
			UnitPrice:     unitPrice,
			MarginPercent: tier.TargetMarginPercent,
		})
	}

	return result, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateTiers(tiers []QuantityTier) error {
	if len(tiers) == 0 {
		return &ValidationError{Field: "tiers", Reason: "at least one quantity tier required"}
	}
	seen := make(map[int64]bool, len(tiers))
	for _, t := range tiers {
		if t.Quantity <= 0 {
			return &ValidationError{Field: "tier.quantity", Reason: "must be positive"}
		}
		if t.TargetMarginPercent.IsNegative() {
			return &ValidationError{Field: "tier.target_margin_percent", Reason: "must not be negative"}
		}
		if t.TargetMarginPercent.GreaterThanOrEqual(hundred) {
			// margin = 100 implies infinite price
			return &ValidationError{Field: "tier.target_margin_percent", Reason: "must be below 100"}
		}
		if seen[t.Quantity] {
			return &ValidationError{Field: "tier.quantity", Reason: fmt.Sprintf("duplicate tier quantity %d", t.Quantity)}
		}
		seen[t.Quantity] = true
	}
	return nil
}

func validateLines(in RollupInput) error {
	for _, m := range in.Materials {
		if m.CostPerUnit.IsNegative() {
			return &ValidationError{Field: "material.cost_per_unit", Reason: "must not be negative"}
		}
		if m.QuantityPerUnit.IsNegative() {
			return &ValidationError{Field: "material.quantity_per_unit", Reason: "must not be negative"}
		}
	}
	for _, s := range in.Subcons {
		if s.CostPerUnit.IsNegative() {
			return &ValidationError{Field: "subcon.cost_per_unit", Reason: "must not be negative"}
		}
		if s.Quantity <= 0 {
			return &ValidationError{Field: "subcon.quantity", Reason: "must be positive"}
		}
	}
	for _, r := range in.Routings {
		if r.SetupMinutes.IsNegative() || r.RunMinutes.IsNegative() {
			return &ValidationError{Field: "routing.minutes", Reason: fmt.Sprintf("op %d: times must not be negative", r.OpNumber)}
		}
	}
	return nil
}

// validateSubconAlignment enforces the tier/subcon lockstep: subcon unit
// prices are looked up by exact quantity match, so when any subcon lines
// exist the distinct subcon quantities and the tier quantities must be the
// same set. Otherwise a tier would silently price with zero subcon cost.
func validateSubconAlignment(subcons []SubconLine, tiers []QuantityTier) error {
	if len(subcons) == 0 {
		return nil
	}

	tierQtys := make(map[int64]bool, len(tiers))
	for _, t := range tiers {
		tierQtys[t.Quantity] = true
	}
	subconQtys := make(map[int64]bool)
	for _, s := range subcons {
		subconQtys[s.Quantity] = true
	}

	var missing, extra []int64
	for q := range tierQtys {
		if !subconQtys[q] {
			missing = append(missing, q)
		}
	}
	for q := range subconQtys {
		if !tierQtys[q] {
			extra = append(extra, q)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return &ValidationError{
		Field:  "subcons",
		Reason: fmt.Sprintf("subcon quantities do not match tier quantities (tiers without subcon pricing: %v, subcon rows without tier: %v)", missing, extra),
	}
}

func one() decimal.Decimal {
	return decimal.NewFromInt(1)
}
