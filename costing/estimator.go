/*
estimator.go - PERT material price estimator

PURPOSE:
  Produces a defensible per-part material cost from noisy historical price
  data. Deterministic only: no AI/ML dependency, every output is a closed
  form over the inputs.

ALGORITHM:
  1. Time-adjust each record for inflation:
     adjusted_i = price_i * (1 + inflationPerYear)^yearsAgo_i
  2. Three-point estimate over adjusted prices:
     low = min, high = max, mostLikely = median
  3. PERT: expected = (low + 4*mostLikely + high) / 6
           stdDev   = (high - low) / 6
           p80      = expected + 0.84 * stdDev
  4. buyWeightPerPart = netWeightKg / yield  (yield compensates for scrap;
     buy weight is always >= net weight since yield <= 1)
  5. rawCost = buyWeightPerPart * quantity * pricePerKg
     contingency = rawCost * contingencyRate(volatility)
     costPerPart = (rawCost + contingency) / quantity

EDGE CASES:
  - Empty price history is "no estimate available", never a zero cost.
  - A single record degenerates to low == mostLikely == high, stdDev == 0.
  - yield <= 0 is rejected before computation (division by zero).
  - Inflation rates <= -1/year and non-positive prices are rejected before
    computation; the compounding factor must stay a positive real.

SEE ALSO:
  - types.go: PriceRecord, Material
  - config.go: Contingency rates, P50/P80 selection
*/
package costing

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// hoursPerYear converts a record's age to fractional years (365.25 days).
const hoursPerYear = 365.25 * 24

// z80 approximates the 80th percentile under a PERT-normal approximation.
var z80 = decimal.RequireFromString("0.84")

var negativeOne = decimal.NewFromInt(-1)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// EstimateInput carries everything a material estimate needs.
type EstimateInput struct {
	Records  []PriceRecord
	Material Material

	NetWeightKg decimal.Decimal
	Quantity    int64

	// Now anchors the inflation adjustment. Callers pass time.Now();
	// tests pin it for determinism.
	Now time.Time

	Config Config
}

// Estimate is the full output of a material price estimation.
type Estimate struct {
	// Three-point estimate over inflation-adjusted prices, per kg.
	Low        decimal.Decimal
	MostLikely decimal.Decimal
	High       decimal.Decimal
	Expected   decimal.Decimal
	StdDev     decimal.Decimal
	P80        decimal.Decimal

	// PricePerKg is the value the cost derivation used (Expected or P80).
	PricePerKg decimal.Decimal

	BuyWeightPerPart    decimal.Decimal
	RawMaterialCost     decimal.Decimal
	Contingency         decimal.Decimal
	MaterialCostPerPart decimal.Decimal

	// RecordCount is how many price records backed the estimate.
	RecordCount int
}

// =============================================================================
// ESTIMATION
// =============================================================================

// EstimateMaterialCost derives a per-part material cost from historical
// price records. It returns a DataUnavailableError when no records exist;
// callers must surface that as "no estimate", not as a zero cost.
func EstimateMaterialCost(in EstimateInput) (*Estimate, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	if len(in.Records) == 0 {
		return nil, &DataUnavailableError{MaterialID: in.Material.ID}
	}
	if !in.Material.DefaultYield.IsPositive() {
		return nil, &ValidationError{Field: "material.default_yield", Reason: "must be positive"}
	}
	if in.Material.DefaultYield.GreaterThan(one()) {
		return nil, &ValidationError{Field: "material.default_yield", Reason: "must not exceed 1"}
	}
	if !in.Material.Volatility.Valid() {
		return nil, &ValidationError{Field: "material.volatility", Reason: "unknown volatility level"}
	}
	// A rate at or below -100%/year makes the compounding base non-positive
	// and the fractional-year power undefined (NaN).
	if in.Material.InflationRatePerYear.LessThanOrEqual(negativeOne) {
		return nil, &ValidationError{Field: "material.inflation_rate_per_year", Reason: "must be greater than -1"}
	}
	if !in.NetWeightKg.IsPositive() {
		return nil, &ValidationError{Field: "net_weight_kg", Reason: "must be positive"}
	}
	if in.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	for _, r := range in.Records {
		if !r.PricePerKg.IsPositive() {
			return nil, &ValidationError{Field: "price_record.price_per_kg", Reason: "must be positive"}
		}
	}

	adjusted := adjustForInflation(in.Records, in.Material.InflationRatePerYear, in.Now)
	sort.Slice(adjusted, func(i, j int) bool { return adjusted[i].LessThan(adjusted[j]) })

	low := adjusted[0]
	high := adjusted[len(adjusted)-1]
	mostLikely := median(adjusted)

	// expected = (low + 4*mostLikely + high) / 6
	expected := low.Add(mostLikely.Mul(decimal.NewFromInt(4))).Add(high).Div(decimal.NewFromInt(6))
	stdDev := high.Sub(low).Div(decimal.NewFromInt(6))
	p80 := expected.Add(z80.Mul(stdDev))

	pricePerKg := expected
	if in.Config.UseP80 {
		pricePerKg = p80
	}

	buyWeightPerPart := in.NetWeightKg.Div(in.Material.DefaultYield)
	qty := decimal.NewFromInt(in.Quantity)
	rawCost := buyWeightPerPart.Mul(qty).Mul(pricePerKg)
	contingency := rawCost.Mul(in.Config.contingencyRate(in.Material.Volatility))
	costPerPart := rawCost.Add(contingency).Div(qty)

	return &Estimate{
		Low:                 low,
		MostLikely:          mostLikely,
		High:                high,
		Expected:            expected,
		StdDev:              stdDev,
		P80:                 p80,
		PricePerKg:          pricePerKg,
		BuyWeightPerPart:    buyWeightPerPart,
		RawMaterialCost:     rawCost,
		Contingency:         contingency,
		MaterialCostPerPart: costPerPart,
		RecordCount:         len(in.Records),
	}, nil
}

// adjustForInflation compounds each historical price forward to present
// value, compensating for stale quotes. The compounding factor is computed
// in float64; the fractional-year exponent makes exact decimal
// exponentiation meaningless here.
func adjustForInflation(records []PriceRecord, ratePerYear decimal.Decimal, now time.Time) []decimal.Decimal {
	rate, _ := ratePerYear.Float64()
	out := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		yearsAgo := now.Sub(r.RecordDate).Hours() / hoursPerYear
		if yearsAgo < 0 {
			yearsAgo = 0 // future-dated records are taken at face value
		}
		factor := math.Pow(1+rate, yearsAgo)
		out = append(out, r.PricePerKg.Mul(decimal.NewFromFloat(factor)))
	}
	return out
}

// median returns the middle of a sorted slice, averaging the two middle
// values when the count is even.
func median(sorted []decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
