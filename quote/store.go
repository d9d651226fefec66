/*
store.go - Persistence interfaces for the quotation domain

PURPOSE:
  Defines the interface between domain logic and the database. Different
  implementations can use SQLite or in-memory storage.

REPLACE-CHILDREN CONTRACT:
  ReplaceLines and ReplaceVolumePricing replace every child row of a
  quotation in a single database transaction: delete scoped to the
  quotation id, bulk insert, commit. The source system issued the delete
  and the reinserts as separate sequential calls, leaving a window where a
  concurrent reader saw a quotation with no lines; implementations of this
  interface must not reproduce that window.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - quote/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Domain operations built on these interfaces
*/
package quote

import (
	"context"

	"github.com/fabriq/quote-engine/costing"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUOTATION STORE
// =============================================================================

// QuotationStore persists quotation headers and their child collections.
type QuotationStore interface {
	SaveQuotation(ctx context.Context, q Quotation) error
	GetQuotation(ctx context.Context, id QuotationID) (*Quotation, error)
	ListQuotations(ctx context.Context) ([]Quotation, error)

	// ReplaceLines atomically replaces all child line collections of a
	// quotation. Stale volume pricing for the quotation is removed in the
	// same transaction.
	ReplaceLines(ctx context.Context, id QuotationID, lines Lines) error
	GetLines(ctx context.Context, id QuotationID) (*Lines, error)

	// ReplaceVolumePricing atomically replaces the stored roll-up output.
	ReplaceVolumePricing(ctx context.Context, id QuotationID, tiers []costing.TierResult, fallbacks []int) error
	GetVolumePricing(ctx context.Context, id QuotationID) ([]costing.TierResult, []int, error)
}

// =============================================================================
// MATERIAL STORE
// =============================================================================

// MaterialStore persists materials and their price history.
type MaterialStore interface {
	SaveMaterial(ctx context.Context, m costing.Material) error
	GetMaterial(ctx context.Context, id string) (*costing.Material, error)
	ListMaterials(ctx context.Context) ([]costing.Material, error)

	// AddPriceRecord appends to a material's price history. History is
	// append-only; stale quotes are handled by inflation adjustment, not
	// deletion.
	AddPriceRecord(ctx context.Context, r costing.PriceRecord) error
	GetPriceRecords(ctx context.Context, materialID string) ([]costing.PriceRecord, error)
}

// =============================================================================
// RESOURCE / SETTINGS STORE
// =============================================================================

// ResourceStore persists routing resources and their rates.
type ResourceStore interface {
	SaveResource(ctx context.Context, r Resource) error
	ListResources(ctx context.Context) ([]Resource, error)

	// ResourceRates returns every configured rate keyed by resource ID,
	// as consumed by costing.RollupInput.Rates.
	ResourceRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// SettingsStore persists the calculation settings as key/value rows.
// The factory package resolves them into an immutable costing.Config.
type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Store is the full persistence surface the service needs.
type Store interface {
	QuotationStore
	MaterialStore
	ResourceStore
	SettingsStore
}
