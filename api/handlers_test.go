package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriq/quote-engine/quote/store"
)

func newTestRouter(t *testing.T) (http.Handler, *Handler) {
	t.Helper()
	h := NewHandler(store.NewMemory())
	return NewRouter(h), h
}

// do issues a request against the router and returns the recorder.
func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func createDraft(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/quotations", CreateQuotationRequest{
		ID:       id,
		Number:   "Q-" + id,
		Customer: "Aero Systems",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// simpleLines prices one fallback routing op and one material line:
// labour 10+100*0.6 = 70, material 2*1.10*100 = 220, total 290.
func simpleLines() ReplaceLinesRequest {
	return ReplaceLinesRequest{
		Materials: []MaterialLineDTO{
			{Category: "steel", CostPerUnit: "2", QuantityPerUnit: "1"},
		},
		Routings: []RoutingLineDTO{
			{OpNumber: 10, SetupMinutes: "10", RunMinutes: "0.6"},
		},
		Tiers: []QuantityTierDTO{
			{Quantity: 100, TargetMarginPercent: "0"},
		},
	}
}

// =============================================================================
// QUOTATION LIFECYCLE
// =============================================================================

func TestCreateQuotation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/quotations", CreateQuotationRequest{
		ID: "q1", Number: "Q-2026-0001", Customer: "Aero Systems",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	dto := decode[QuotationDTO](t, rec)
	assert.Equal(t, "q1", dto.ID)
	assert.Equal(t, "draft", dto.Status)
}

func TestCreateQuotation_MissingCustomer(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/quotations", CreateQuotationRequest{
		ID: "q1", Number: "Q-2026-0001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuotation_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/quotations/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceLines_ReturnsPricing(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")

	rec := do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	pricing := decode[PricingDTO](t, rec)
	require.Len(t, pricing.Tiers, 1)
	tier := pricing.Tiers[0]
	assert.Equal(t, int64(100), tier.Quantity)
	assert.Equal(t, "70", tier.LabourCost)
	assert.Equal(t, "220", tier.MaterialCost)
	assert.Equal(t, "290", tier.TotalCost)
	assert.Equal(t, "2.9", tier.CostPerUnit)

	// No resource rate configured for op 10: flagged, not rejected.
	assert.Equal(t, []int{10}, pricing.RateFallbacks)

	// Pricing is stored, not just returned.
	rec = do(t, router, http.MethodGet, "/api/quotations/q1/pricing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[PricingDTO](t, rec)
	require.Len(t, stored.Tiers, 1)
	assert.Equal(t, "290", stored.Tiers[0].TotalCost)
}

func TestReplaceLines_ZeroQuantityTier(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")

	req := simpleLines()
	req.Tiers[0].Quantity = 0
	rec := do(t, router, http.MethodPut, "/api/quotations/q1/lines", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceLines_MalformedDecimal(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")

	req := simpleLines()
	req.Materials[0].CostPerUnit = "two euros"
	rec := do(t, router, http.MethodPut, "/api/quotations/q1/lines", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalize_RequiresPricing(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")

	rec := do(t, router, http.MethodPost, "/api/quotations/q1/finalize", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFinalize_FreezesQuotation(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")
	require.Equal(t, http.StatusOK,
		do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines()).Code)

	rec := do(t, router, http.MethodPost, "/api/quotations/q1/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[QuotationDTO](t, rec)
	assert.Equal(t, "finalized", dto.Status)

	// Further edits conflict.
	rec = do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines())
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Finalize is idempotent.
	rec = do(t, router, http.MethodPost, "/api/quotations/q1/finalize", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// MATERIALS AND ESTIMATION
// =============================================================================

func seedMaterial(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/materials", MaterialDTO{
		ID:                   "steel-s355",
		Name:                 "Structural Steel S355",
		DefaultYield:         "0.5",
		InflationRatePerYear: "0",
		Volatility:           "low",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSaveMaterial_InvalidVolatility(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/materials", MaterialDTO{
		ID: "m1", DefaultYield: "0.5", InflationRatePerYear: "0", Volatility: "extreme",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveMaterial_RunawayDeflationRejected(t *testing.T) {
	// A rate at or below -100%/year can never be compounded; it must be
	// refused at the door rather than stored and tripped over at estimate
	// time.
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/materials", MaterialDTO{
		ID: "m1", DefaultYield: "0.5", InflationRatePerYear: "-2", Volatility: "low",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAddPriceRecord_NonPositivePriceRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	seedMaterial(t, router)

	for _, price := range []string{"-5", "0"} {
		rec := do(t, router, http.MethodPost, "/api/materials/steel-s355/prices", AddPriceRecordRequest{
			RecordDate: "2026-01-01",
			PricePerKg: price,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "price %s", price)
	}
}

func TestEstimate(t *testing.T) {
	router, _ := newTestRouter(t)
	seedMaterial(t, router)

	for _, p := range []string{"10", "12", "14"} {
		rec := do(t, router, http.MethodPost, "/api/materials/steel-s355/prices", AddPriceRecordRequest{
			RecordDate: "2026-01-01",
			PricePerKg: p,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, router, http.MethodPost, "/api/materials/steel-s355/estimate", EstimateRequest{
		NetWeightKg: "1",
		Quantity:    100,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	est := decode[EstimateDTO](t, rec)
	assert.Equal(t, "12", est.Expected)
	assert.Equal(t, "2", est.BuyWeightPerPart) // 1kg net / 0.5 yield
	assert.Equal(t, "2400", est.RawMaterialCost)
	assert.Equal(t, "48", est.Contingency) // low volatility, 2%
	assert.Equal(t, "24.48", est.MaterialCostPerPart)
	assert.Equal(t, 3, est.RecordCount)
}

func TestEstimate_NoPriceHistory(t *testing.T) {
	router, _ := newTestRouter(t)
	seedMaterial(t, router)

	rec := do(t, router, http.MethodPost, "/api/materials/steel-s355/estimate", EstimateRequest{
		NetWeightKg: "1",
		Quantity:    100,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEstimate_UnknownMaterial(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/materials/nope/estimate", EstimateRequest{
		NetWeightKg: "1",
		Quantity:    100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriceRecords_List(t *testing.T) {
	router, _ := newTestRouter(t)
	seedMaterial(t, router)

	rec := do(t, router, http.MethodPost, "/api/materials/steel-s355/prices", AddPriceRecordRequest{
		RecordDate: "2026-01-15",
		PricePerKg: "11.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/materials/steel-s355/prices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]PriceRecordDTO](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-01-15", records[0].RecordDate)
	assert.Equal(t, "11.5", records[0].PricePerKg)
}

// =============================================================================
// RESOURCES AND SETTINGS
// =============================================================================

func TestResources_RatesFlowIntoPricing(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/resources", ResourceDTO{
		ID: "cnc-1", Name: "CNC Mill", CostPerMinute: "2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	createDraft(t, router, "q1")
	req := simpleLines()
	req.Routings[0].ResourceID = "cnc-1"
	rec = do(t, router, http.MethodPut, "/api/quotations/q1/lines", req)
	require.Equal(t, http.StatusOK, rec.Code)

	pricing := decode[PricingDTO](t, rec)
	// (10 + 100*0.6) * 2/min = 140: configured rate, no fallback.
	assert.Equal(t, "140", pricing.Tiers[0].LabourCost)
	assert.Empty(t, pricing.RateFallbacks)
}

func TestSettings_UpdateAndApply(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/settings", map[string]string{
		"material_markup_percent": "50",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[map[string]string](t, rec)
	assert.Equal(t, "50", settings["material_markup_percent"])

	// The markup flows into the next roll-up: 2*1.50*100 = 300.
	createDraft(t, router, "q1")
	rec = do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines())
	require.Equal(t, http.StatusOK, rec.Code)
	pricing := decode[PricingDTO](t, rec)
	assert.Equal(t, "300", pricing.Tiers[0].MaterialCost)
}

func TestSettings_RejectsMalformed(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/settings", map[string]string{
		"cost_per_hour": "sixty",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was stored.
	rec = do(t, router, http.MethodGet, "/api/settings", nil)
	settings := decode[map[string]string](t, rec)
	assert.NotContains(t, settings, "cost_per_hour")
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportPDF(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")
	require.Equal(t, http.StatusOK,
		do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines()).Code)

	rec := do(t, router, http.MethodGet, "/api/quotations/q1/export/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestExportExcel(t *testing.T) {
	router, _ := newTestRouter(t)
	createDraft(t, router, "q1")
	require.Equal(t, http.StatusOK,
		do(t, router, http.MethodPut, "/api/quotations/q1/lines", simpleLines()).Code)

	rec := do(t, router, http.MethodGet, "/api/quotations/q1/export/excel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestExport_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/quotations/nope/export/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
