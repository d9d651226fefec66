package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/quote"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testQuotation(id string) quote.Quotation {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return quote.Quotation{
		ID:         quote.QuotationID(id),
		Number:     "Q-" + id,
		Customer:   "Aero Systems",
		PartNumber: "PN-1001",
		PartName:   "Bracket",
		Status:     quote.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestQuotation_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN a saved quotation
	q := testQuotation("q1")
	require.NoError(t, s.SaveQuotation(ctx, q))

	// WHEN loading it back
	got, err := s.GetQuotation(ctx, "q1")

	// THEN every header field round-trips
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
	assert.Equal(t, q.Number, got.Number)
	assert.Equal(t, q.Customer, got.Customer)
	assert.Equal(t, q.PartNumber, got.PartNumber)
	assert.Equal(t, q.PartName, got.PartName)
	assert.Equal(t, quote.StatusDraft, got.Status)
	assert.True(t, q.CreatedAt.Equal(got.CreatedAt))
}

func TestQuotation_SaveIsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := testQuotation("q1")
	require.NoError(t, s.SaveQuotation(ctx, q))

	q.Customer = "Marine Works"
	q.Status = quote.StatusFinalized
	require.NoError(t, s.SaveQuotation(ctx, q))

	got, err := s.GetQuotation(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Marine Works", got.Customer)
	assert.Equal(t, quote.StatusFinalized, got.Status)

	all, err := s.ListQuotations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQuotation_GetUnknownIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetQuotation(context.Background(), "nope")
	assert.True(t, quote.IsNotFound(err))
}

func TestLines_ReplaceAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))

	// GIVEN a full set of child lines
	lines := quote.Lines{
		Materials: []costing.MaterialLine{
			{Category: "aluminium", Vendor: "MetalCo", CostPerUnit: d("4.50"), QuantityPerUnit: d("2.5")},
		},
		Subcons: []costing.SubconLine{
			{VendorID: "anodize-1", Process: "anodizing", CostPerUnit: d("3.00"), Quantity: 100, CertRequired: true},
		},
		Routings: []costing.RoutingLine{
			{OpNumber: 10, ResourceID: "cnc-1", SetupMinutes: d("30"), RunMinutes: d("1.5")},
			{OpNumber: 20, ResourceID: "", SetupMinutes: d("10"), RunMinutes: d("0.5")},
		},
		Tiers: []costing.QuantityTier{
			{Quantity: 100, TargetMarginPercent: d("35")},
			{Quantity: 500, TargetMarginPercent: d("40")},
		},
	}

	// WHEN replacing and loading back
	require.NoError(t, s.ReplaceLines(ctx, "q1", lines))
	got, err := s.GetLines(ctx, "q1")
	require.NoError(t, err)

	// THEN every collection round-trips with decimal values intact
	require.Len(t, got.Materials, 1)
	assert.True(t, got.Materials[0].CostPerUnit.Equal(d("4.50")))
	assert.True(t, got.Materials[0].QuantityPerUnit.Equal(d("2.5")))
	require.Len(t, got.Subcons, 1)
	assert.True(t, got.Subcons[0].CertRequired)
	assert.Equal(t, int64(100), got.Subcons[0].Quantity)
	require.Len(t, got.Routings, 2)
	assert.Equal(t, 10, got.Routings[0].OpNumber)
	assert.Equal(t, 20, got.Routings[1].OpNumber)
	require.Len(t, got.Tiers, 2)
	assert.True(t, got.Tiers[1].TargetMarginPercent.Equal(d("40")))
}

func TestLines_ReplaceIsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))

	// GIVEN stored lines
	first := quote.Lines{
		Materials: []costing.MaterialLine{
			{Category: "steel", CostPerUnit: d("1"), QuantityPerUnit: d("1")},
			{Category: "brass", CostPerUnit: d("2"), QuantityPerUnit: d("1")},
		},
		Tiers: []costing.QuantityTier{{Quantity: 10, TargetMarginPercent: d("20")}},
	}
	require.NoError(t, s.ReplaceLines(ctx, "q1", first))

	// WHEN replacing with a smaller set
	second := quote.Lines{
		Materials: []costing.MaterialLine{
			{Category: "titanium", CostPerUnit: d("9"), QuantityPerUnit: d("1")},
		},
		Tiers: []costing.QuantityTier{{Quantity: 50, TargetMarginPercent: d("30")}},
	}
	require.NoError(t, s.ReplaceLines(ctx, "q1", second))

	// THEN no rows of the first save survive
	got, err := s.GetLines(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got.Materials, 1)
	assert.Equal(t, "titanium", got.Materials[0].Category)
	require.Len(t, got.Tiers, 1)
	assert.Equal(t, int64(50), got.Tiers[0].Quantity)
}

func TestLines_ReplaceClearsStalePricing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))
	require.NoError(t, s.ReplaceVolumePricing(ctx, "q1", []costing.TierResult{
		{Quantity: 100, Hours: d("1"), LabourCost: d("60"), MaterialCost: d("0"),
			SubconCost: d("0"), TotalCost: d("60"), CostPerUnit: d("0.6"),
			UnitPrice: d("1"), MarginPercent: d("40")},
	}, []int{10}))

	// Replacing lines invalidates previously computed pricing.
	require.NoError(t, s.ReplaceLines(ctx, "q1", quote.Lines{
		Tiers: []costing.QuantityTier{{Quantity: 200, TargetMarginPercent: d("35")}},
	}))

	tiers, fallbacks, err := s.GetVolumePricing(ctx, "q1")
	require.NoError(t, err)
	assert.Empty(t, tiers)
	assert.Empty(t, fallbacks, "fallback ops belong to the cleared pricing run")
}

func TestLines_UnknownQuotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.ReplaceLines(ctx, "nope", quote.Lines{})
	assert.True(t, quote.IsNotFound(err))

	_, err = s.GetLines(ctx, "nope")
	assert.True(t, quote.IsNotFound(err))
}

func TestVolumePricing_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))

	tiers := []costing.TierResult{
		{Quantity: 500, Hours: d("16.8333333333333333"), LabourCost: d("1010"),
			MaterialCost: d("6000"), SubconCost: d("0"), TotalCost: d("7010"),
			CostPerUnit: d("14.02"), UnitPrice: d("21.57"), MarginPercent: d("35")},
		{Quantity: 1000, Hours: d("33.5"), LabourCost: d("2010"),
			MaterialCost: d("12000"), SubconCost: d("0"), TotalCost: d("14010"),
			CostPerUnit: d("14.01"), UnitPrice: d("21.55"), MarginPercent: d("35")},
	}
	require.NoError(t, s.ReplaceVolumePricing(ctx, "q1", tiers, []int{10, 20}))

	got, fallbacks, err := s.GetVolumePricing(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(500), got[0].Quantity)
	assert.True(t, got[0].TotalCost.Equal(d("7010")))
	assert.True(t, got[0].UnitPrice.Equal(d("21.57")))
	assert.True(t, got[1].LabourCost.Equal(d("2010")))
	assert.Equal(t, []int{10, 20}, fallbacks)
}

func TestVolumePricing_ReplaceClearsFallbacks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))

	tier := []costing.TierResult{
		{Quantity: 100, Hours: d("1"), LabourCost: d("60"), MaterialCost: d("0"),
			SubconCost: d("0"), TotalCost: d("60"), CostPerUnit: d("0.6"),
			UnitPrice: d("1"), MarginPercent: d("40")},
	}
	require.NoError(t, s.ReplaceVolumePricing(ctx, "q1", tier, []int{10}))
	require.NoError(t, s.ReplaceVolumePricing(ctx, "q1", tier, nil))

	_, fallbacks, err := s.GetVolumePricing(ctx, "q1")
	require.NoError(t, err)
	assert.Empty(t, fallbacks)
}

func TestMaterial_SaveGetList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := costing.Material{
		ID:                   "al-6061",
		Name:                 "Aluminium 6061",
		DefaultYield:         d("0.6"),
		InflationRatePerYear: d("0.03"),
		Volatility:           costing.VolatilityMedium,
	}
	require.NoError(t, s.SaveMaterial(ctx, m))

	got, err := s.GetMaterial(ctx, "al-6061")
	require.NoError(t, err)
	assert.Equal(t, "Aluminium 6061", got.Name)
	assert.True(t, got.DefaultYield.Equal(d("0.6")))
	assert.Equal(t, costing.VolatilityMedium, got.Volatility)

	_, err = s.GetMaterial(ctx, "nope")
	assert.True(t, quote.IsNotFound(err))

	all, err := s.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPriceRecords_AppendOnlyOrderedByDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMaterial(ctx, costing.Material{
		ID: "al-6061", Name: "Aluminium 6061",
		DefaultYield: d("0.6"), InflationRatePerYear: d("0.03"),
		Volatility: costing.VolatilityLow,
	}))

	// Inserted out of order on purpose.
	dates := []time.Time{
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	prices := []string{"14", "10", "12"}
	for i, dt := range dates {
		require.NoError(t, s.AddPriceRecord(ctx, costing.PriceRecord{
			MaterialID: "al-6061", RecordDate: dt, PricePerKg: d(prices[i]),
		}))
	}

	records, err := s.GetPriceRecords(ctx, "al-6061")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].PricePerKg.Equal(d("10")))
	assert.True(t, records[1].PricePerKg.Equal(d("12")))
	assert.True(t, records[2].PricePerKg.Equal(d("14")))
}

func TestPriceRecords_UnknownMaterial(t *testing.T) {
	s := newTestStore(t)

	err := s.AddPriceRecord(context.Background(), costing.PriceRecord{
		MaterialID: "nope", RecordDate: time.Now(), PricePerKg: d("1"),
	})
	assert.True(t, quote.IsNotFound(err))
}

func TestResources_RatesMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResource(ctx, quote.Resource{ID: "cnc-1", Name: "CNC Mill", CostPerMinute: d("1.50")}))
	require.NoError(t, s.SaveResource(ctx, quote.Resource{ID: "lathe-1", Name: "Lathe", CostPerMinute: d("0.90")}))

	rates, err := s.ResourceRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.True(t, rates["cnc-1"].Equal(d("1.50")))
	assert.True(t, rates["lathe-1"].Equal(d("0.90")))

	// Upsert overwrites the rate.
	require.NoError(t, s.SaveResource(ctx, quote.Resource{ID: "cnc-1", Name: "CNC Mill", CostPerMinute: d("2.00")}))
	rates, err = s.ResourceRates(ctx)
	require.NoError(t, err)
	assert.True(t, rates["cnc-1"].Equal(d("2.00")))
}

func TestSettings_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)

	require.NoError(t, s.PutSetting(ctx, "material_markup_percent", "20"))
	require.NoError(t, s.PutSetting(ctx, "material_markup_percent", "25"))
	require.NoError(t, s.PutSetting(ctx, "cost_per_hour", "75"))

	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "25", settings["material_markup_percent"])
	assert.Equal(t, "75", settings["cost_per_hour"])
}

func TestReset_ClearsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveQuotation(ctx, testQuotation("q1")))
	require.NoError(t, s.SaveResource(ctx, quote.Resource{ID: "cnc-1", Name: "CNC Mill", CostPerMinute: d("1.50")}))
	require.NoError(t, s.PutSetting(ctx, "cost_per_hour", "75"))

	require.NoError(t, s.Reset(ctx))

	quotations, err := s.ListQuotations(ctx)
	require.NoError(t, err)
	assert.Empty(t, quotations)
	resources, err := s.ListResources(ctx)
	require.NoError(t, err)
	assert.Empty(t, resources)
	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)
}
