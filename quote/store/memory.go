// Package store provides quote.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/quote"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	quotations map[quote.QuotationID]quote.Quotation
	lines      map[quote.QuotationID]quote.Lines
	pricing    map[quote.QuotationID]pricingRows
	materials  map[string]costing.Material
	prices     map[string][]costing.PriceRecord
	resources  map[string]quote.Resource
	settings   map[string]string
}

type pricingRows struct {
	tiers     []costing.TierResult
	fallbacks []int
}

func NewMemory() *Memory {
	return &Memory{
		quotations: make(map[quote.QuotationID]quote.Quotation),
		lines:      make(map[quote.QuotationID]quote.Lines),
		pricing:    make(map[quote.QuotationID]pricingRows),
		materials:  make(map[string]costing.Material),
		prices:     make(map[string][]costing.PriceRecord),
		resources:  make(map[string]quote.Resource),
		settings:   make(map[string]string),
	}
}

// Compile-time check that Memory implements the full store surface.
var _ quote.Store = (*Memory)(nil)

// =============================================================================
// QUOTATIONS
// =============================================================================

func (m *Memory) SaveQuotation(_ context.Context, q quote.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotations[q.ID] = q
	return nil
}

func (m *Memory) GetQuotation(_ context.Context, id quote.QuotationID) (*quote.Quotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	return &q, nil
}

func (m *Memory) ListQuotations(_ context.Context) ([]quote.Quotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quote.Quotation, 0, len(m.quotations))
	for _, q := range m.quotations {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ReplaceLines swaps all child collections under one lock acquisition,
// mirroring the single-transaction contract of the SQLite store. Stale
// volume pricing goes with the old lines.
func (m *Memory) ReplaceLines(_ context.Context, id quote.QuotationID, lines quote.Lines) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	m.lines[id] = cloneLines(lines)
	delete(m.pricing, id)
	return nil
}

func (m *Memory) GetLines(_ context.Context, id quote.QuotationID) (*quote.Lines, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.quotations[id]; !ok {
		return nil, &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	lines := cloneLines(m.lines[id])
	return &lines, nil
}

func (m *Memory) ReplaceVolumePricing(_ context.Context, id quote.QuotationID, tiers []costing.TierResult, fallbacks []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	m.pricing[id] = pricingRows{
		tiers:     append([]costing.TierResult(nil), tiers...),
		fallbacks: append([]int(nil), fallbacks...),
	}
	return nil
}

func (m *Memory) GetVolumePricing(_ context.Context, id quote.QuotationID) ([]costing.TierResult, []int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.quotations[id]; !ok {
		return nil, nil, &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	rows := m.pricing[id]
	return append([]costing.TierResult(nil), rows.tiers...),
		append([]int(nil), rows.fallbacks...), nil
}

// =============================================================================
// MATERIALS
// =============================================================================

func (m *Memory) SaveMaterial(_ context.Context, mat costing.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[mat.ID] = mat
	return nil
}

func (m *Memory) GetMaterial(_ context.Context, id string) (*costing.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, &quote.NotFoundError{Kind: "material", ID: id}
	}
	return &mat, nil
}

func (m *Memory) ListMaterials(_ context.Context) ([]costing.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]costing.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		out = append(out, mat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AddPriceRecord(_ context.Context, r costing.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[r.MaterialID]; !ok {
		return &quote.NotFoundError{Kind: "material", ID: r.MaterialID}
	}
	m.prices[r.MaterialID] = append(m.prices[r.MaterialID], r)
	return nil
}

func (m *Memory) GetPriceRecords(_ context.Context, materialID string) ([]costing.PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := append([]costing.PriceRecord(nil), m.prices[materialID]...)
	sort.Slice(records, func(i, j int) bool { return records[i].RecordDate.Before(records[j].RecordDate) })
	return records, nil
}

// =============================================================================
// RESOURCES / SETTINGS
// =============================================================================

func (m *Memory) SaveResource(_ context.Context, r quote.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

func (m *Memory) ListResources(_ context.Context) ([]quote.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quote.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ResourceRates(_ context.Context) (map[string]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rates := make(map[string]decimal.Decimal, len(m.resources))
	for id, r := range m.resources {
		rates[id] = r.CostPerMinute
	}
	return rates, nil
}

func (m *Memory) GetSettings(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// Reset wipes all data. Used by demo scenario loaders.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotations = make(map[quote.QuotationID]quote.Quotation)
	m.lines = make(map[quote.QuotationID]quote.Lines)
	m.pricing = make(map[quote.QuotationID]pricingRows)
	m.materials = make(map[string]costing.Material)
	m.prices = make(map[string][]costing.PriceRecord)
	m.resources = make(map[string]quote.Resource)
	m.settings = make(map[string]string)
	return nil
}

func cloneLines(l quote.Lines) quote.Lines {
	return quote.Lines{
		Materials: append([]costing.MaterialLine(nil), l.Materials...),
		Subcons:   append([]costing.SubconLine(nil), l.Subcons...),
		Routings:  append([]costing.RoutingLine(nil), l.Routings...),
		Tiers:     append([]costing.QuantityTier(nil), l.Tiers...),
	}
}
