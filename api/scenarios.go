/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the database with realistic demo data so the system can be explored
  without manual setup. Each scenario wipes the database and loads a
  self-contained dataset: settings, resources, materials with price
  history, and one or more quotations with computed pricing.

SCENARIOS:
  machined-bracket:  A machined aluminium bracket quoted at three volumes,
                     with configured resource rates and an anodizing subcon.
  volatile-alloy:    A high-volatility alloy with two years of price
                     history, set up for estimator demos.

USAGE:
  POST /api/scenarios/load {"scenario_id": "machined-bracket"}

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - quote/service.go: The operations each loader drives
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/factory"
	"github.com/fabriq/quote-engine/quote"
)

// resetter is implemented by stores that can wipe all data.
type resetter interface {
	Reset(ctx context.Context) error
}

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ID:          "machined-bracket",
		Name:        "Machined Bracket",
		Description: "Aluminium bracket quoted at 100/500/1000 units with an anodizing subcon",
		Load:        loadMachinedBracket,
	},
	{
		ID:          "volatile-alloy",
		Name:        "Volatile Alloy",
		Description: "High-volatility alloy with two years of price history for estimation demos",
		Load:        loadVolatileAlloy,
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns all loadable demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the most recently loaded scenario id.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario wipes the database and loads the named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var selected *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			selected = &scenarios[i]
			break
		}
	}
	if selected == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := selected.Load(ctx, h); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = selected.ID
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": selected.ID, "status": "loaded"})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	return rs.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadMachinedBracket(ctx context.Context, h *Handler) error {
	// Calculation settings: 20% material markup, 10% subcon markup.
	settings := map[string]string{
		factory.KeyMaterialMarkupPercent: "20",
		factory.KeySubconMarkupPercent:   "10",
		factory.KeyCostPerHour:           "60",
	}
	for k, v := range settings {
		if err := h.Store.PutSetting(ctx, k, v); err != nil {
			return err
		}
	}

	resources := []quote.Resource{
		{ID: "cnc-mill-1", Name: "CNC Mill #1", CostPerMinute: dec("1.50")},
		{ID: "cnc-lathe-1", Name: "CNC Lathe #1", CostPerMinute: dec("1.20")},
		{ID: "deburr-bench", Name: "Deburring Bench", CostPerMinute: dec("0.60")},
	}
	for _, res := range resources {
		if err := h.Store.SaveResource(ctx, res); err != nil {
			return err
		}
	}

	if _, err := h.Service.CreateQuotation(ctx, quote.Quotation{
		ID:         "demo-bracket",
		Number:     "Q-2026-0001",
		Customer:   "Aero Systems",
		PartNumber: "PN-1001",
		PartName:   "Mounting Bracket",
	}); err != nil {
		return err
	}

	lines := quote.Lines{
		Materials: []costing.MaterialLine{
			{Category: "aluminium 6061 plate", Vendor: "MetalCo", CostPerUnit: dec("4.80"), QuantityPerUnit: dec("2.5")},
		},
		Subcons: []costing.SubconLine{
			{VendorID: "anodize-1", Process: "anodizing", CostPerUnit: dec("3.00"), Quantity: 100, CertRequired: true},
			{VendorID: "anodize-1", Process: "anodizing", CostPerUnit: dec("2.40"), Quantity: 500, CertRequired: true},
			{VendorID: "anodize-1", Process: "anodizing", CostPerUnit: dec("2.20"), Quantity: 1000, CertRequired: true},
		},
		Routings: []costing.RoutingLine{
			{OpNumber: 10, ResourceID: "cnc-mill-1", SetupMinutes: dec("45"), RunMinutes: dec("3.2")},
			{OpNumber: 20, ResourceID: "cnc-lathe-1", SetupMinutes: dec("30"), RunMinutes: dec("1.8")},
			{OpNumber: 30, ResourceID: "deburr-bench", SetupMinutes: dec("5"), RunMinutes: dec("0.5")},
		},
		Tiers: []costing.QuantityTier{
			{Quantity: 100, TargetMarginPercent: dec("40")},
			{Quantity: 500, TargetMarginPercent: dec("35")},
			{Quantity: 1000, TargetMarginPercent: dec("32")},
		},
	}
	_, err := h.Service.ReplaceLines(ctx, "demo-bracket", lines)
	return err
}

func loadVolatileAlloy(ctx context.Context, h *Handler) error {
	if err := h.Store.PutSetting(ctx, factory.KeyContingencyHigh, "0.10"); err != nil {
		return err
	}

	material := costing.Material{
		ID:                   "inconel-718",
		Name:                 "Inconel 718",
		DefaultYield:         dec("0.55"),
		InflationRatePerYear: dec("0.06"),
		Volatility:           costing.VolatilityHigh,
	}
	if err := h.Store.SaveMaterial(ctx, material); err != nil {
		return err
	}

	// Two years of monthly observations with a drifting, noisy price.
	prices := []string{
		"31.20", "30.80", "32.50", "33.10", "31.90", "34.40",
		"35.00", "33.60", "36.20", "37.80", "36.50", "38.10",
		"39.40", "38.00", "40.20", "41.60", "40.30", "42.90",
		"44.10", "42.50", "45.30", "46.80", "45.20", "47.50",
	}
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		record := costing.PriceRecord{
			MaterialID: material.ID,
			RecordDate: start.AddDate(0, i, 0),
			PricePerKg: dec(p),
		}
		if err := h.Store.AddPriceRecord(ctx, record); err != nil {
			return err
		}
	}

	// A stable reference material for comparison.
	steel := costing.Material{
		ID:                   "steel-s355",
		Name:                 "Structural Steel S355",
		DefaultYield:         dec("0.80"),
		InflationRatePerYear: dec("0.02"),
		Volatility:           costing.VolatilityLow,
	}
	if err := h.Store.SaveMaterial(ctx, steel); err != nil {
		return err
	}
	for i, p := range []string{"1.10", "1.12", "1.11", "1.13", "1.12", "1.14"} {
		record := costing.PriceRecord{
			MaterialID: steel.ID,
			RecordDate: start.AddDate(0, i*4, 0),
			PricePerKg: dec(p),
		}
		if err := h.Store.AddPriceRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
