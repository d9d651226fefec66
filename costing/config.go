/*
config.go - Immutable calculation configuration

PURPOSE:
  The source system kept markups, shop rate and contingency rates in a
  mutable key-value settings bag read at arbitrary points. Here they are an
  explicit immutable struct, resolved once at the boundary (see the factory
  package) and passed into each calculation call. The engine never mutates
  a Config.

SEE ALSO:
  - factory/settings.go: Builds a Config from stored settings rows
*/
package costing

import "github.com/shopspring/decimal"

// Config holds the resolved calculation parameters for a single call.
type Config struct {
	// MaterialMarkupPercent is added to the raw material cost basis (20 = 20%).
	MaterialMarkupPercent decimal.Decimal

	// SubconMarkupPercent is added to the subcon cost basis.
	SubconMarkupPercent decimal.Decimal

	// CostPerHour is the shop rate used when a routing line's resource has
	// no configured rate. A configuration default, never a silent zero.
	CostPerHour decimal.Decimal

	// ContingencyRates maps a material's volatility level to the contingency
	// ratio applied on top of the raw material cost (0.05 = 5%).
	ContingencyRates map[Volatility]decimal.Decimal

	// UseP80 selects the ~80th-percentile price instead of the PERT
	// expected value when estimating material cost.
	UseP80 bool
}

// DefaultConfig returns the configuration used when no settings are stored.
func DefaultConfig() Config {
	return Config{
		MaterialMarkupPercent: decimal.NewFromInt(10),
		SubconMarkupPercent:   decimal.NewFromInt(10),
		CostPerHour:           decimal.NewFromInt(60),
		ContingencyRates: map[Volatility]decimal.Decimal{
			VolatilityLow:    decimal.RequireFromString("0.02"),
			VolatilityMedium: decimal.RequireFromString("0.05"),
			VolatilityHigh:   decimal.RequireFromString("0.10"),
		},
		UseP80: false,
	}
}

// Validate rejects configurations that would corrupt a calculation.
// Markups and rates must be non-negative; a markup of 0 means the cost
// passes through unchanged.
func (c Config) Validate() error {
	if c.MaterialMarkupPercent.IsNegative() {
		return &ValidationError{Field: "config.material_markup_percent", Reason: "must not be negative"}
	}
	if c.SubconMarkupPercent.IsNegative() {
		return &ValidationError{Field: "config.subcon_markup_percent", Reason: "must not be negative"}
	}
	if c.CostPerHour.IsNegative() {
		return &ValidationError{Field: "config.cost_per_hour", Reason: "must not be negative"}
	}
	for level, rate := range c.ContingencyRates {
		if !level.Valid() {
			return &ValidationError{Field: "config.contingency_rates", Reason: "unknown volatility level " + string(level)}
		}
		if rate.IsNegative() {
			return &ValidationError{Field: "config.contingency_rates", Reason: "rate for " + string(level) + " must not be negative"}
		}
	}
	return nil
}

// contingencyRate returns the configured rate for a volatility level,
// zero when the level has no configured rate.
func (c Config) contingencyRate(v Volatility) decimal.Decimal {
	if rate, ok := c.ContingencyRates[v]; ok {
		return rate
	}
	return decimal.Zero
}
