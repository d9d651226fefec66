/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Money and time-quantity fields travel as decimal strings ("14.02"),
  never JSON numbers. Handlers parse them with decimal.NewFromString and
  reject anything malformed with 400.

TYPES:
  Quotation:
    QuotationDTO, CreateQuotationRequest, ReplaceLinesRequest

  Lines:
    MaterialLineDTO, SubconLineDTO, RoutingLineDTO, QuantityTierDTO

  Pricing:
    TierResultDTO, PricingDTO

  Estimation:
    MaterialDTO, PriceRecordDTO, AddPriceRecordRequest,
    EstimateRequest, EstimateDTO

  Infrastructure:
    ResourceDTO, ScenarioDTO, LoadScenarioRequest, ErrorResponse

SEE ALSO:
  - handlers.go: Uses these types
  - costing/types.go: Domain line types
*/
package api

import (
	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/quote"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUOTATION TYPES
// =============================================================================

// QuotationDTO represents a quotation header in API responses.
type QuotationDTO struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	Customer   string `json:"customer"`
	PartNumber string `json:"part_number,omitempty"`
	PartName   string `json:"part_name,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// CreateQuotationRequest is the request to create a quotation.
type CreateQuotationRequest struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	Customer   string `json:"customer"`
	PartNumber string `json:"part_number"`
	PartName   string `json:"part_name"`
}

// =============================================================================
// LINE TYPES
// =============================================================================

// MaterialLineDTO is one purchased-material line item.
type MaterialLineDTO struct {
	Category        string `json:"category"`
	Vendor          string `json:"vendor,omitempty"`
	CostPerUnit     string `json:"cost_per_unit"`
	QuantityPerUnit string `json:"quantity_per_unit"`
}

// SubconLineDTO is one subcontracted-process line item.
type SubconLineDTO struct {
	VendorID     string `json:"vendor_id,omitempty"`
	Process      string `json:"process"`
	CostPerUnit  string `json:"cost_per_unit"`
	Quantity     int64  `json:"quantity"`
	CertRequired bool   `json:"cert_required"`
}

// RoutingLineDTO is one internal manufacturing operation.
type RoutingLineDTO struct {
	OpNumber     int    `json:"op_number"`
	ResourceID   string `json:"resource_id,omitempty"`
	SetupMinutes string `json:"setup_minutes"`
	RunMinutes   string `json:"run_minutes"`
}

// QuantityTierDTO is one quoted order quantity with its margin target.
type QuantityTierDTO struct {
	Quantity            int64  `json:"quantity"`
	TargetMarginPercent string `json:"target_margin_percent"`
}

// ReplaceLinesRequest replaces every child collection of a quotation.
type ReplaceLinesRequest struct {
	Materials []MaterialLineDTO `json:"materials"`
	Subcons   []SubconLineDTO   `json:"subcons"`
	Routings  []RoutingLineDTO  `json:"routings"`
	Tiers     []QuantityTierDTO `json:"tiers"`
}

// =============================================================================
// PRICING TYPES
// =============================================================================

// TierResultDTO is the roll-up output for one quantity tier.
type TierResultDTO struct {
	Quantity      int64  `json:"quantity"`
	Hours         string `json:"hours"`
	LabourCost    string `json:"labour_cost"`
	MaterialCost  string `json:"material_cost"`
	SubconCost    string `json:"subcon_cost"`
	TotalCost     string `json:"total_cost"`
	CostPerUnit   string `json:"cost_per_unit"`
	UnitPrice     string `json:"unit_price"`
	MarginPercent string `json:"margin_percent"`
}

// PricingDTO wraps the per-tier results plus fallback provenance.
type PricingDTO struct {
	Tiers []TierResultDTO `json:"tiers"`

	// Operation numbers priced with the default labour rate because no
	// resource rate was configured. Non-empty is a warning, not an error.
	RateFallbacks []int `json:"rate_fallbacks,omitempty"`
}

// =============================================================================
// MATERIAL ESTIMATION TYPES
// =============================================================================

// MaterialDTO represents a raw material in API responses.
type MaterialDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	DefaultYield         string `json:"default_yield"`
	InflationRatePerYear string `json:"inflation_rate_per_year"`
	Volatility           string `json:"volatility"`
}

// PriceRecordDTO is one historical price observation.
type PriceRecordDTO struct {
	MaterialID string `json:"material_id"`
	RecordDate string `json:"record_date"`
	PricePerKg string `json:"price_per_kg"`
}

// AddPriceRecordRequest appends one price observation.
type AddPriceRecordRequest struct {
	RecordDate string `json:"record_date"` // YYYY-MM-DD
	PricePerKg string `json:"price_per_kg"`
}

// EstimateRequest runs the PERT estimator for a material.
type EstimateRequest struct {
	NetWeightKg string `json:"net_weight_kg"`
	Quantity    int64  `json:"quantity"`
}

// EstimateDTO is the full estimator output.
type EstimateDTO struct {
	Low                 string `json:"low"`
	MostLikely          string `json:"most_likely"`
	High                string `json:"high"`
	Expected            string `json:"expected"`
	StdDev              string `json:"std_dev"`
	P80                 string `json:"p80"`
	PricePerKg          string `json:"price_per_kg"`
	BuyWeightPerPart    string `json:"buy_weight_per_part"`
	RawMaterialCost     string `json:"raw_material_cost"`
	Contingency         string `json:"contingency"`
	MaterialCostPerPart string `json:"material_cost_per_part"`
	RecordCount         int    `json:"record_count"`
}

// =============================================================================
// INFRASTRUCTURE TYPES
// =============================================================================

// ResourceDTO represents a routing resource in API responses.
type ResourceDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CostPerMinute string `json:"cost_per_minute"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTierResultDTO(t costing.TierResult) TierResultDTO {
	return TierResultDTO{
		Quantity:      t.Quantity,
		Hours:         t.Hours.String(),
		LabourCost:    t.LabourCost.String(),
		MaterialCost:  t.MaterialCost.String(),
		SubconCost:    t.SubconCost.String(),
		TotalCost:     t.TotalCost.String(),
		CostPerUnit:   t.CostPerUnit.String(),
		UnitPrice:     t.UnitPrice.String(),
		MarginPercent: t.MarginPercent.String(),
	}
}

func toPricingDTO(tiers []costing.TierResult, fallbacks []int) PricingDTO {
	dto := PricingDTO{
		Tiers:         make([]TierResultDTO, len(tiers)),
		RateFallbacks: fallbacks,
	}
	for i, t := range tiers {
		dto.Tiers[i] = toTierResultDTO(t)
	}
	return dto
}

func toEstimateDTO(e costing.Estimate) EstimateDTO {
	return EstimateDTO{
		Low:                 e.Low.String(),
		MostLikely:          e.MostLikely.String(),
		High:                e.High.String(),
		Expected:            e.Expected.String(),
		StdDev:              e.StdDev.String(),
		P80:                 e.P80.String(),
		PricePerKg:          e.PricePerKg.String(),
		BuyWeightPerPart:    e.BuyWeightPerPart.String(),
		RawMaterialCost:     e.RawMaterialCost.String(),
		Contingency:         e.Contingency.String(),
		MaterialCostPerPart: e.MaterialCostPerPart.String(),
		RecordCount:         e.RecordCount,
	}
}

// toLines parses a ReplaceLinesRequest into domain lines. Malformed decimal
// strings surface as a ValidationError naming the field.
func toLines(req ReplaceLinesRequest) (quote.Lines, error) {
	var lines quote.Lines

	for _, m := range req.Materials {
		cost, err := parseMoney("materials.cost_per_unit", m.CostPerUnit)
		if err != nil {
			return lines, err
		}
		qty, err := parseMoney("materials.quantity_per_unit", m.QuantityPerUnit)
		if err != nil {
			return lines, err
		}
		lines.Materials = append(lines.Materials, costing.MaterialLine{
			Category:        m.Category,
			Vendor:          m.Vendor,
			CostPerUnit:     cost,
			QuantityPerUnit: qty,
		})
	}
	for _, sc := range req.Subcons {
		cost, err := parseMoney("subcons.cost_per_unit", sc.CostPerUnit)
		if err != nil {
			return lines, err
		}
		lines.Subcons = append(lines.Subcons, costing.SubconLine{
			VendorID:     sc.VendorID,
			Process:      sc.Process,
			CostPerUnit:  cost,
			Quantity:     sc.Quantity,
			CertRequired: sc.CertRequired,
		})
	}
	for _, r := range req.Routings {
		setup, err := parseMoney("routings.setup_minutes", r.SetupMinutes)
		if err != nil {
			return lines, err
		}
		run, err := parseMoney("routings.run_minutes", r.RunMinutes)
		if err != nil {
			return lines, err
		}
		lines.Routings = append(lines.Routings, costing.RoutingLine{
			OpNumber:     r.OpNumber,
			ResourceID:   r.ResourceID,
			SetupMinutes: setup,
			RunMinutes:   run,
		})
	}
	for _, t := range req.Tiers {
		margin, err := parseMoney("tiers.target_margin_percent", t.TargetMarginPercent)
		if err != nil {
			return lines, err
		}
		lines.Tiers = append(lines.Tiers, costing.QuantityTier{
			Quantity:            t.Quantity,
			TargetMarginPercent: margin,
		})
	}
	return lines, nil
}

func parseMoney(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &costing.ValidationError{Field: field, Reason: "not a valid decimal: " + raw}
	}
	return d, nil
}

func toLinesDTO(lines quote.Lines) ReplaceLinesRequest {
	out := ReplaceLinesRequest{}
	for _, m := range lines.Materials {
		out.Materials = append(out.Materials, MaterialLineDTO{
			Category:        m.Category,
			Vendor:          m.Vendor,
			CostPerUnit:     m.CostPerUnit.String(),
			QuantityPerUnit: m.QuantityPerUnit.String(),
		})
	}
	for _, sc := range lines.Subcons {
		out.Subcons = append(out.Subcons, SubconLineDTO{
			VendorID:     sc.VendorID,
			Process:      sc.Process,
			CostPerUnit:  sc.CostPerUnit.String(),
			Quantity:     sc.Quantity,
			CertRequired: sc.CertRequired,
		})
	}
	for _, r := range lines.Routings {
		out.Routings = append(out.Routings, RoutingLineDTO{
			OpNumber:     r.OpNumber,
			ResourceID:   r.ResourceID,
			SetupMinutes: r.SetupMinutes.String(),
			RunMinutes:   r.RunMinutes.String(),
		})
	}
	for _, t := range lines.Tiers {
		out.Tiers = append(out.Tiers, QuantityTierDTO{
			Quantity:            t.Quantity,
			TargetMarginPercent: t.TargetMarginPercent.String(),
		})
	}
	return out
}
