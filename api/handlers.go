/*
handlers.go - HTTP API handlers for the quotation engine

PURPOSE:
  Exposes the quotation and costing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Quotations:
    GET    /api/quotations                 List all quotations
    POST   /api/quotations                 Create draft quotation
    GET    /api/quotations/{id}            Get quotation header
    GET    /api/quotations/{id}/lines      Get child line collections
    PUT    /api/quotations/{id}/lines      Replace children + recompute pricing
    GET    /api/quotations/{id}/pricing    Get stored volume pricing
    POST   /api/quotations/{id}/pricing    Recompute pricing from stored lines
    POST   /api/quotations/{id}/finalize   Freeze the quotation
    GET    /api/quotations/{id}/export/pdf   Download PDF document
    GET    /api/quotations/{id}/export/excel Download Excel workbook

  Materials:
    GET    /api/materials                  List raw materials
    POST   /api/materials                  Create/update material
    GET    /api/materials/{id}             Get material
    GET    /api/materials/{id}/prices      Price history
    POST   /api/materials/{id}/prices      Append price record
    POST   /api/materials/{id}/estimate    Run PERT cost estimate

  Resources / Settings:
    GET    /api/resources                  List routing resources
    POST   /api/resources                  Create/update resource
    GET    /api/settings                   Calculation settings
    PUT    /api/settings                   Update settings

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario
    POST   /api/scenarios/reset            Wipe all data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Lifecycle conflict (editing finalized, finalizing unpriced)
  - 422: Estimation impossible (no price history for material)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/export"
	"github.com/fabriq/quote-engine/factory"
	"github.com/fabriq/quote-engine/quote"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   quote.Store
	Service *quote.Service

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store quote.Store) *Handler {
	return &Handler{
		Store:   store,
		Service: quote.NewService(store),
	}
}

// =============================================================================
// QUOTATION HANDLERS
// =============================================================================

// ListQuotations returns all quotation headers.
func (h *Handler) ListQuotations(w http.ResponseWriter, r *http.Request) {
	quotations, err := h.Store.ListQuotations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list quotations", err)
		return
	}

	dtos := make([]QuotationDTO, len(quotations))
	for i, q := range quotations {
		dtos[i] = toQuotationDTO(q)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateQuotation creates a new draft quotation.
func (h *Handler) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	q, err := h.Service.CreateQuotation(r.Context(), quote.Quotation{
		ID:         quote.QuotationID(req.ID),
		Number:     req.Number,
		Customer:   req.Customer,
		PartNumber: req.PartNumber,
		PartName:   req.PartName,
	})
	if err != nil {
		writeDomainError(w, "Failed to create quotation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toQuotationDTO(*q))
}

// GetQuotation returns a single quotation header.
func (h *Handler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	q, err := h.Store.GetQuotation(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get quotation", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotationDTO(*q))
}

// GetLines returns the child line collections of a quotation.
func (h *Handler) GetLines(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	lines, err := h.Store.GetLines(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get lines", err)
		return
	}
	writeJSON(w, http.StatusOK, toLinesDTO(*lines))
}

// ReplaceLines replaces every child collection of a draft quotation and
// returns the recomputed volume pricing.
func (h *Handler) ReplaceLines(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	var req ReplaceLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lines, err := toLines(req)
	if err != nil {
		writeDomainError(w, "Invalid line item", err)
		return
	}

	result, err := h.Service.ReplaceLines(r.Context(), id, lines)
	if err != nil {
		writeDomainError(w, "Failed to replace lines", err)
		return
	}
	writeJSON(w, http.StatusOK, toPricingDTO(result.Tiers, result.RateFallbacks))
}

// GetPricing returns the stored volume pricing.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	tiers, fallbacks, err := h.Store.GetVolumePricing(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, toPricingDTO(tiers, fallbacks))
}

// ComputePricing re-runs the roll-up over the stored lines. Used after
// resource rates or settings changed.
func (h *Handler) ComputePricing(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	result, err := h.Service.ComputePricing(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, toPricingDTO(result.Tiers, result.RateFallbacks))
}

// Finalize freezes a priced quotation.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := quote.QuotationID(chi.URLParam(r, "id"))

	q, err := h.Service.Finalize(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to finalize quotation", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotationDTO(*q))
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportPDF streams the quotation as a PDF document.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.exportData(r)
	if err != nil {
		writeDomainError(w, "Failed to load quotation", err)
		return
	}

	pdf, err := export.GeneratePDF(*data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate PDF", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", data.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// ExportExcel streams the quotation as an Excel workbook.
func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	data, err := h.exportData(r)
	if err != nil {
		writeDomainError(w, "Failed to load quotation", err)
		return
	}

	workbook, err := export.GenerateExcel(*data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate workbook", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", data.Number+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(workbook)
}

func (h *Handler) exportData(r *http.Request) (*export.QuoteData, error) {
	ctx := r.Context()
	id := quote.QuotationID(chi.URLParam(r, "id"))

	q, err := h.Store.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := h.Store.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	tiers, fallbacks, err := h.Store.GetVolumePricing(ctx, id)
	if err != nil {
		return nil, err
	}

	data := export.Assemble(*q, *lines, tiers, fallbacks, time.Now().UTC())
	return &data, nil
}

// =============================================================================
// MATERIAL HANDLERS
// =============================================================================

// ListMaterials returns all raw materials.
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Store.ListMaterials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list materials", err)
		return
	}

	dtos := make([]MaterialDTO, len(materials))
	for i, m := range materials {
		dtos[i] = toMaterialDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMaterial returns a single material.
func (h *Handler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.Store.GetMaterial(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get material", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialDTO(*m))
}

// SaveMaterial creates or updates a material.
func (h *Handler) SaveMaterial(w http.ResponseWriter, r *http.Request) {
	var req MaterialDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Material id must not be empty", nil)
		return
	}

	yield, err := parseMoney("material.default_yield", req.DefaultYield)
	if err != nil {
		writeDomainError(w, "Invalid material", err)
		return
	}
	inflation, err := parseMoney("material.inflation_rate_per_year", req.InflationRatePerYear)
	if err != nil {
		writeDomainError(w, "Invalid material", err)
		return
	}
	if inflation.LessThanOrEqual(decimal.NewFromInt(-1)) {
		writeError(w, http.StatusBadRequest, "Inflation rate must be greater than -1", nil)
		return
	}
	volatility := costing.Volatility(req.Volatility)
	if !volatility.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid volatility (use low/medium/high)", nil)
		return
	}

	m := costing.Material{
		ID:                   req.ID,
		Name:                 req.Name,
		DefaultYield:         yield,
		InflationRatePerYear: inflation,
		Volatility:           volatility,
	}
	if err := h.Store.SaveMaterial(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save material", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterialDTO(m))
}

// ListPriceRecords returns a material's price history, oldest first.
func (h *Handler) ListPriceRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := h.Store.GetMaterial(ctx, id); err != nil {
		writeDomainError(w, "Failed to get material", err)
		return
	}
	records, err := h.Store.GetPriceRecords(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get price records", err)
		return
	}

	dtos := make([]PriceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = PriceRecordDTO{
			MaterialID: rec.MaterialID,
			RecordDate: rec.RecordDate.Format("2006-01-02"),
			PricePerKg: rec.PricePerKg.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddPriceRecord appends one price observation to a material's history.
func (h *Handler) AddPriceRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddPriceRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	recordDate, err := time.Parse("2006-01-02", req.RecordDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record_date format (use YYYY-MM-DD)", err)
		return
	}
	price, err := parseMoney("price_record.price_per_kg", req.PricePerKg)
	if err != nil {
		writeDomainError(w, "Invalid price record", err)
		return
	}
	if !price.IsPositive() {
		writeError(w, http.StatusBadRequest, "Price per kg must be positive", nil)
		return
	}

	record := costing.PriceRecord{
		MaterialID: id,
		RecordDate: recordDate,
		PricePerKg: price,
	}
	if err := h.Store.AddPriceRecord(r.Context(), record); err != nil {
		writeDomainError(w, "Failed to add price record", err)
		return
	}
	writeJSON(w, http.StatusCreated, PriceRecordDTO{
		MaterialID: record.MaterialID,
		RecordDate: record.RecordDate.Format("2006-01-02"),
		PricePerKg: record.PricePerKg.String(),
	})
}

// Estimate runs the PERT estimator over a material's price history.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	netWeight, err := parseMoney("estimate.net_weight_kg", req.NetWeightKg)
	if err != nil {
		writeDomainError(w, "Invalid estimate request", err)
		return
	}

	estimate, err := h.Service.EstimateMaterial(r.Context(), id, netWeight, req.Quantity)
	if err != nil {
		writeDomainError(w, "Failed to estimate material cost", err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateDTO(*estimate))
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all routing resources.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.Store.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resources", err)
		return
	}

	dtos := make([]ResourceDTO, len(resources))
	for i, res := range resources {
		dtos[i] = ResourceDTO{
			ID:            res.ID,
			Name:          res.Name,
			CostPerMinute: res.CostPerMinute.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveResource creates or updates a routing resource.
func (h *Handler) SaveResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Resource id must not be empty", nil)
		return
	}
	rate, err := parseMoney("resource.cost_per_minute", req.CostPerMinute)
	if err != nil {
		writeDomainError(w, "Invalid resource", err)
		return
	}
	if rate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Resource rate must not be negative", nil)
		return
	}

	res := quote.Resource{ID: req.ID, Name: req.Name, CostPerMinute: rate}
	if err := h.Store.SaveResource(r.Context(), res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the stored calculation settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings merges the given settings rows. The merged map must still
// resolve to a valid configuration; otherwise nothing is stored.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	current, err := h.Store.GetSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	merged := make(map[string]string, len(current)+len(req))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range req {
		merged[k] = v
	}
	if _, err := factory.ConfigFromSettings(merged); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	for k, v := range req {
		if err := h.Store.PutSetting(ctx, k, v); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store setting", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, merged)
}

// =============================================================================
// HELPERS
// =============================================================================

func toQuotationDTO(q quote.Quotation) QuotationDTO {
	return QuotationDTO{
		ID:         string(q.ID),
		Number:     q.Number,
		Customer:   q.Customer,
		PartNumber: q.PartNumber,
		PartName:   q.PartName,
		Status:     string(q.Status),
		CreatedAt:  q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  q.UpdatedAt.Format(time.RFC3339),
	}
}

func toMaterialDTO(m costing.Material) MaterialDTO {
	return MaterialDTO{
		ID:                   m.ID,
		Name:                 m.Name,
		DefaultYield:         m.DefaultYield.String(),
		InflationRatePerYear: m.InflationRatePerYear.String(),
		Volatility:           string(m.Volatility),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case costing.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case quote.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case quote.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case costing.IsDataUnavailable(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
