/*
Package factory converts stored settings rows into engine configuration.

PURPOSE:
  The settings table is a plain key/value bag so operations staff can tune
  markups and rates without code changes. This package is the single place
  where that bag becomes a typed, validated, immutable costing.Config.
  Nothing downstream ever reads a raw setting.

SETTINGS KEYS:
  material_markup_percent   "10"     markup on material cost basis
  subcon_markup_percent     "10"     markup on subcon cost basis
  cost_per_hour             "60"     shop rate, also the routing fallback
  contingency_rate_low      "0.02"   contingency per volatility level
  contingency_rate_medium   "0.05"
  contingency_rate_high     "0.10"
  use_p80                   "false"  price at ~P80 instead of expected value

  Missing keys fall back to DefaultConfig values. Malformed values are
  errors, not silent defaults: a typo in a markup must not quietly change
  every quote in the system.

USAGE:
  cfg, err := factory.ConfigFromSettings(rows)

SEE ALSO:
  - costing/config.go: The Config type and its validation
*/
package factory

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
)

// Setting keys as stored in the settings table.
const (
	KeyMaterialMarkupPercent = "material_markup_percent"
	KeySubconMarkupPercent   = "subcon_markup_percent"
	KeyCostPerHour           = "cost_per_hour"
	KeyContingencyLow        = "contingency_rate_low"
	KeyContingencyMedium     = "contingency_rate_medium"
	KeyContingencyHigh       = "contingency_rate_high"
	KeyUseP80                = "use_p80"
)

// ConfigFromSettings resolves key/value settings rows into a validated
// costing.Config. Keys absent from the map keep their defaults.
func ConfigFromSettings(settings map[string]string) (costing.Config, error) {
	cfg := costing.DefaultConfig()

	var err error
	if cfg.MaterialMarkupPercent, err = decimalSetting(settings, KeyMaterialMarkupPercent, cfg.MaterialMarkupPercent); err != nil {
		return costing.Config{}, err
	}
	if cfg.SubconMarkupPercent, err = decimalSetting(settings, KeySubconMarkupPercent, cfg.SubconMarkupPercent); err != nil {
		return costing.Config{}, err
	}
	if cfg.CostPerHour, err = decimalSetting(settings, KeyCostPerHour, cfg.CostPerHour); err != nil {
		return costing.Config{}, err
	}

	rates := map[costing.Volatility]string{
		costing.VolatilityLow:    KeyContingencyLow,
		costing.VolatilityMedium: KeyContingencyMedium,
		costing.VolatilityHigh:   KeyContingencyHigh,
	}
	for level, key := range rates {
		if cfg.ContingencyRates[level], err = decimalSetting(settings, key, cfg.ContingencyRates[level]); err != nil {
			return costing.Config{}, err
		}
	}

	if raw, ok := settings[KeyUseP80]; ok {
		useP80, err := strconv.ParseBool(raw)
		if err != nil {
			return costing.Config{}, fmt.Errorf("setting %s: %q is not a boolean", KeyUseP80, raw)
		}
		cfg.UseP80 = useP80
	}

	if err := cfg.Validate(); err != nil {
		return costing.Config{}, err
	}
	return cfg, nil
}

// SettingsFromConfig flattens a Config back into settings rows, used when
// seeding a fresh database.
func SettingsFromConfig(cfg costing.Config) map[string]string {
	return map[string]string{
		KeyMaterialMarkupPercent: cfg.MaterialMarkupPercent.String(),
		KeySubconMarkupPercent:   cfg.SubconMarkupPercent.String(),
		KeyCostPerHour:           cfg.CostPerHour.String(),
		KeyContingencyLow:        cfg.ContingencyRates[costing.VolatilityLow].String(),
		KeyContingencyMedium:     cfg.ContingencyRates[costing.VolatilityMedium].String(),
		KeyContingencyHigh:       cfg.ContingencyRates[costing.VolatilityHigh].String(),
		KeyUseP80:                strconv.FormatBool(cfg.UseP80),
	}
}

func decimalSetting(settings map[string]string, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := settings[key]
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("setting %s: %q is not a number", key, raw)
	}
	return d, nil
}
