package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/factory"
)

func TestConfigFromSettings_EmptyBag_Defaults(t *testing.T) {
	cfg, err := factory.ConfigFromSettings(nil)
	require.NoError(t, err)

	def := costing.DefaultConfig()
	assert.True(t, def.MaterialMarkupPercent.Equal(cfg.MaterialMarkupPercent))
	assert.True(t, def.CostPerHour.Equal(cfg.CostPerHour))
	assert.False(t, cfg.UseP80)
}

func TestConfigFromSettings_OverridesApplied(t *testing.T) {
	cfg, err := factory.ConfigFromSettings(map[string]string{
		factory.KeyMaterialMarkupPercent: "22.5",
		factory.KeyCostPerHour:           "85",
		factory.KeyContingencyHigh:       "0.15",
		factory.KeyUseP80:                "true",
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("22.5").Equal(cfg.MaterialMarkupPercent))
	assert.True(t, decimal.RequireFromString("85").Equal(cfg.CostPerHour))
	assert.True(t, decimal.RequireFromString("0.15").Equal(cfg.ContingencyRates[costing.VolatilityHigh]))
	// untouched keys keep their defaults
	assert.True(t, costing.DefaultConfig().SubconMarkupPercent.Equal(cfg.SubconMarkupPercent))
	assert.True(t, cfg.UseP80)
}

func TestConfigFromSettings_MalformedValue_Error(t *testing.T) {
	// A typo in a markup must not quietly fall back to the default.

	_, err := factory.ConfigFromSettings(map[string]string{
		factory.KeyMaterialMarkupPercent: "ten percent",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), factory.KeyMaterialMarkupPercent)

	_, err = factory.ConfigFromSettings(map[string]string{
		factory.KeyUseP80: "maybe",
	})
	require.Error(t, err)
}

func TestConfigFromSettings_NegativeMarkup_Rejected(t *testing.T) {
	_, err := factory.ConfigFromSettings(map[string]string{
		factory.KeySubconMarkupPercent: "-3",
	})
	require.Error(t, err)
	assert.True(t, costing.IsValidation(err))
}

func TestSettingsFromConfig_RoundTrips(t *testing.T) {
	cfg := costing.DefaultConfig()
	cfg.UseP80 = true
	cfg.CostPerHour = decimal.RequireFromString("72.50")

	rows := factory.SettingsFromConfig(cfg)
	back, err := factory.ConfigFromSettings(rows)
	require.NoError(t, err)

	assert.True(t, cfg.CostPerHour.Equal(back.CostPerHour))
	assert.Equal(t, cfg.UseP80, back.UseP80)
	for level, rate := range cfg.ContingencyRates {
		assert.True(t, rate.Equal(back.ContingencyRates[level]), "rate for %s", level)
	}
}
