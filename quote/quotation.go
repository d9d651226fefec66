// Package quote implements the quotation domain on top of the costing engine.
// It owns the quotation lifecycle (draft editing, wholesale line replacement,
// finalization) and assembles engine inputs from stored records.
package quote

import (
	"time"

	"github.com/fabriq/quote-engine/costing"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUOTATION AGGREGATE
// =============================================================================

type QuotationID string

// Status is the quotation lifecycle state. Line items are editable while a
// quotation is a draft; a finalized quotation is an immutable snapshot and
// rejects child replacement.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

// Quotation is the header record of a part quotation. Child line
// collections live in Lines and are replaced wholesale on save, never
// diffed incrementally.
type Quotation struct {
	ID         QuotationID
	Number     string // e.g. "Q-2026-0142"
	Customer   string
	PartNumber string
	PartName   string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Editable reports whether the quotation's children may still change.
func (q *Quotation) Editable() bool {
	return q.Status == StatusDraft
}

// Lines groups a quotation's child collections. They are saved and replaced
// as one unit: no line item outlives its parent quotation, and a save
// replaces every collection even when only one changed.
type Lines struct {
	Materials []costing.MaterialLine
	Subcons   []costing.SubconLine
	Routings  []costing.RoutingLine
	Tiers     []costing.QuantityTier
}

// Empty reports whether no line items exist at all.
func (l Lines) Empty() bool {
	return len(l.Materials) == 0 && len(l.Subcons) == 0 &&
		len(l.Routings) == 0 && len(l.Tiers) == 0
}

// =============================================================================
// ROUTING RESOURCES
// =============================================================================

// Resource is an internal machine or work center with a cost rate.
// Routing lines reference resources by ID; the roll-up prices each line at
// the resource's per-minute rate.
type Resource struct {
	ID            string
	Name          string
	CostPerMinute decimal.Decimal
}

// VolumePricing is one persisted volume-pricing row: the stored output of a
// roll-up for a single tier, plus the fallback provenance of the whole run.
type VolumePricing struct {
	QuotationID QuotationID
	Tier        costing.TierResult
	ComputedAt  time.Time
}
