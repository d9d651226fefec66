/*
Package costing provides the core quotation calculation engine.

PURPOSE:
  This package contains the pure calculators behind the quotation system:
  the volume-tier cost roll-up (labour + material + subcon per order
  quantity, marked up and priced to a target margin) and the PERT-based
  material price estimator (three-point estimate over historical prices).

KEY CONCEPTS IN THIS FILE (types.go):
  - MaterialLine / SubconLine / RoutingLine: line items of a part quotation
  - QuantityTier: an order quantity with its target margin
  - PriceRecord / Material: historical price data for estimation

DESIGN PRINCIPLES:
  1. Purity: no I/O, no shared state; every call is isolated to its inputs
  2. Precision: uses decimal.Decimal for all money values to avoid
     floating-point drift across chained markup/margin multiplications
  3. Fail fast: invalid inputs are rejected before any partial computation

USAGE:
  result, err := costing.Rollup(costing.RollupInput{
      Materials: lines,
      Routings:  routings,
      Tiers:     []costing.QuantityTier{{Quantity: 500, TargetMarginPercent: d("35")}},
      Config:    cfg,
  })

SEE ALSO:
  - rollup.go: Volume-tier cost roll-up
  - estimator.go: PERT material price estimator
  - config.go: Immutable calculation configuration
*/
package costing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VOLATILITY - Price dispersion classification for a material
// =============================================================================

// Volatility classifies how unstable a material's market price is.
// It selects the contingency rate applied on top of the raw material cost.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// Valid reports whether v is one of the defined volatility levels.
func (v Volatility) Valid() bool {
	switch v {
	case VolatilityLow, VolatilityMedium, VolatilityHigh:
		return true
	}
	return false
}

// =============================================================================
// QUOTATION LINE ITEMS
// =============================================================================

// MaterialLine is one bought-in material consumed by a single part.
// Cost contribution per part = CostPerUnit * QuantityPerUnit.
type MaterialLine struct {
	Category        string
	Vendor          string
	CostPerUnit     decimal.Decimal
	QuantityPerUnit decimal.Decimal
}

// Cost returns the markup-free cost contribution for a single part.
func (m MaterialLine) Cost() decimal.Decimal {
	return m.CostPerUnit.Mul(m.QuantityPerUnit)
}

// SubconLine is one subcontracted process, priced per unit for a specific
// order quantity. Subcon vendors quote tier-specific unit prices, so a
// quotation carries one line per process per quantity tier.
type SubconLine struct {
	VendorID     string
	Process      string
	CostPerUnit  decimal.Decimal
	Quantity     int64 // the tier quantity this unit price applies to
	CertRequired bool
}

// RoutingLine is one internal operation on the part's route.
// Setup time is a one-time-per-batch cost; run time accrues per unit.
type RoutingLine struct {
	OpNumber     int
	ResourceID   string
	SetupMinutes decimal.Decimal
	RunMinutes   decimal.Decimal
}

// QuantityTier is an order quantity for which the quotation computes a
// distinct unit price. TargetMarginPercent is the share of the final price
// that should be profit, in [0, 100).
type QuantityTier struct {
	Quantity            int64
	TargetMarginPercent decimal.Decimal
}

// =============================================================================
// MATERIAL PRICE HISTORY
// =============================================================================

// PriceRecord is one historical price quote for a material.
// Records accumulate over time; a record never has a missing price.
type PriceRecord struct {
	MaterialID string
	RecordDate time.Time
	PricePerKg decimal.Decimal
}

// Material carries the estimation parameters of a raw material.
type Material struct {
	ID   string
	Name string

	// DefaultYield is the fraction of purchased material that survives
	// processing into finished net weight, in (0, 1].
	DefaultYield decimal.Decimal

	// InflationRatePerYear compounds historical prices forward to present
	// value (0.03 = 3%/year).
	InflationRatePerYear decimal.Decimal

	Volatility Volatility
}
