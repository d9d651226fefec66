/*
service.go - Quotation domain operations

PURPOSE:
  Implements the flows behind the API: save/edit a quotation, replace its
  line collections, compute and persist volume pricing, finalize, and run
  material price estimates. The service does the I/O (loading lines, rates
  and settings) strictly before invoking the pure costing engine, so engine
  calls stay isolated and safe to run concurrently across quotations.

SAVE SEMANTICS:
  Replacing lines recomputes volume pricing in the same operation: children
  and pricing rows never drift apart. A roll-up validation failure aborts
  the whole save; nothing is replaced.

SEE ALSO:
  - costing/rollup.go, costing/estimator.go: The calculators
  - factory/settings.go: Settings rows -> costing.Config
*/
package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/factory"
)

// Service implements quotation operations over a Store.
type Service struct {
	store Store

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

// NewService creates a service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// QUOTATION LIFECYCLE
// =============================================================================

// CreateQuotation saves a new draft quotation header.
func (s *Service) CreateQuotation(ctx context.Context, q Quotation) (*Quotation, error) {
	if q.ID == "" {
		return nil, &costing.ValidationError{Field: "quotation.id", Reason: "must not be empty"}
	}
	if q.Customer == "" {
		return nil, &costing.ValidationError{Field: "quotation.customer", Reason: "must not be empty"}
	}
	q.Status = StatusDraft
	q.CreatedAt = s.now().UTC()
	q.UpdatedAt = q.CreatedAt
	if err := s.store.SaveQuotation(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ReplaceLines replaces every child line collection of a draft quotation
// and recomputes its volume pricing. The replacement is atomic: on any
// validation failure the stored children are untouched.
func (s *Service) ReplaceLines(ctx context.Context, id QuotationID, lines Lines) (*costing.RollupResult, error) {
	q, err := s.store.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Editable() {
		return nil, fmt.Errorf("quotation %s: %w", id, ErrQuotationFinalized)
	}

	result, err := s.rollup(ctx, lines)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceLines(ctx, id, lines); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceVolumePricing(ctx, id, result.Tiers, result.RateFallbacks); err != nil {
		return nil, err
	}

	q.UpdatedAt = s.now().UTC()
	if err := s.store.SaveQuotation(ctx, *q); err != nil {
		return nil, err
	}
	return result, nil
}

// ComputePricing re-runs the roll-up over the stored lines and replaces the
// persisted volume pricing. Used when rates or settings changed after the
// lines were last saved.
func (s *Service) ComputePricing(ctx context.Context, id QuotationID) (*costing.RollupResult, error) {
	q, err := s.store.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Editable() {
		return nil, fmt.Errorf("quotation %s: %w", id, ErrQuotationFinalized)
	}

	lines, err := s.store.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.rollup(ctx, *lines)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceVolumePricing(ctx, id, result.Tiers, result.RateFallbacks); err != nil {
		return nil, err
	}
	return result, nil
}

// Finalize freezes a priced quotation. Its children become an immutable
// snapshot; further edits are rejected with ErrQuotationFinalized.
func (s *Service) Finalize(ctx context.Context, id QuotationID) (*Quotation, error) {
	q, err := s.store.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status == StatusFinalized {
		return q, nil // idempotent
	}

	tiers, _, err := s.store.GetVolumePricing(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("quotation %s: %w", id, ErrNotPriced)
	}

	q.Status = StatusFinalized
	q.UpdatedAt = s.now().UTC()
	if err := s.store.SaveQuotation(ctx, *q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) rollup(ctx context.Context, lines Lines) (*costing.RollupResult, error) {
	rates, err := s.store.ResourceRates(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	return costing.Rollup(costing.RollupInput{
		Materials: lines.Materials,
		Subcons:   lines.Subcons,
		Routings:  lines.Routings,
		Tiers:     lines.Tiers,
		Rates:     rates,
		Config:    cfg,
	})
}

// =============================================================================
// MATERIAL ESTIMATION
// =============================================================================

// EstimateMaterial runs the PERT estimator over a material's stored price
// history for the given part weight and order quantity.
func (s *Service) EstimateMaterial(ctx context.Context, materialID string, netWeightKg decimal.Decimal, quantity int64) (*costing.Estimate, error) {
	material, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.GetPriceRecords(ctx, materialID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}

	return costing.EstimateMaterialCost(costing.EstimateInput{
		Records:     records,
		Material:    *material,
		NetWeightKg: netWeightKg,
		Quantity:    quantity,
		Now:         s.now().UTC(),
		Config:      cfg,
	})
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config resolves the stored settings rows into an immutable costing
// configuration. Resolved once per operation at this boundary; the engine
// never reads settings itself.
func (s *Service) Config(ctx context.Context) (costing.Config, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return costing.Config{}, err
	}
	return factory.ConfigFromSettings(settings)
}
