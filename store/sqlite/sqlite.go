/*
Package sqlite provides a SQLite-backed implementation of quote.Store.

PURPOSE:
  Implements all persistence interfaces (QuotationStore, MaterialStore,
  ResourceStore, SettingsStore) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

REPLACE-CHILDREN SEMANTICS:
  Quotation child rows (material/subcon/routing lines, tiers, volume
  pricing) are replaced wholesale, never diffed. Each replacement runs in a
  single SQL transaction: delete scoped to the quotation id, bulk insert,
  commit. The system this replaces issued the delete and the reinserts as
  separate calls, leaving a window where a concurrent reader saw a
  quotation with no lines.

MONEY:
  All money and time-quantity values are stored as decimal strings
  (shopspring/decimal String/NewFromString round-trip), never as REAL.

KEY TABLES:
  quotations:      Quotation headers with lifecycle status
  material_lines,
  subcon_lines,
  routing_lines,
  quantity_tiers:  Child collections, replaced wholesale on save
  volume_pricing:  Stored roll-up output per tier
  resources:       Routing resources and per-minute rates
  materials:       Estimation parameters per raw material
  price_records:   Append-only material price history
  settings:        Key/value calculation settings

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/quotes.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - quote/store.go: Interface definitions
  - quote/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/quote"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check that Store implements the full store surface.
var _ quote.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Quotation headers
	CREATE TABLE IF NOT EXISTS quotations (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		customer TEXT NOT NULL,
		part_number TEXT,
		part_name TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		rate_fallbacks_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_quotations_number
		ON quotations(number);
	CREATE INDEX IF NOT EXISTS idx_quotations_status
		ON quotations(status);

	-- Child collections: replaced wholesale, scoped to quotation id.
	-- position preserves form entry order.
	CREATE TABLE IF NOT EXISTS material_lines (
		quotation_id TEXT NOT NULL REFERENCES quotations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		category TEXT,
		vendor TEXT,
		cost_per_unit TEXT NOT NULL,
		quantity_per_unit TEXT NOT NULL,
		PRIMARY KEY (quotation_id, position)
	);

	CREATE TABLE IF NOT EXISTS subcon_lines (
		quotation_id TEXT NOT NULL REFERENCES quotations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		vendor_id TEXT,
		process TEXT,
		cost_per_unit TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		cert_required BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (quotation_id, position)
	);

	CREATE TABLE IF NOT EXISTS routing_lines (
		quotation_id TEXT NOT NULL REFERENCES quotations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		op_number INTEGER NOT NULL,
		resource_id TEXT,
		setup_minutes TEXT NOT NULL,
		run_minutes TEXT NOT NULL,
		PRIMARY KEY (quotation_id, position)
	);

	CREATE TABLE IF NOT EXISTS quantity_tiers (
		quotation_id TEXT NOT NULL REFERENCES quotations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		target_margin_percent TEXT NOT NULL,
		PRIMARY KEY (quotation_id, position)
	);

	-- Stored roll-up output, one row per tier
	CREATE TABLE IF NOT EXISTS volume_pricing (
		quotation_id TEXT NOT NULL REFERENCES quotations(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL,
		hours TEXT NOT NULL,
		labour_cost TEXT NOT NULL,
		material_cost TEXT NOT NULL,
		subcon_cost TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		cost_per_unit TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		margin_percent TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		PRIMARY KEY (quotation_id, quantity)
	);

	-- Routing resources
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cost_per_minute TEXT NOT NULL
	);

	-- Raw materials (estimation parameters)
	CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_yield TEXT NOT NULL,
		inflation_rate_per_year TEXT NOT NULL,
		volatility TEXT NOT NULL
	);

	-- Price history (append-only)
	CREATE TABLE IF NOT EXISTS price_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
		record_date TEXT NOT NULL,
		price_per_kg TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_records_material_date
		ON price_records(material_id, record_date);

	-- Calculation settings
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUOTATIONS (quote.QuotationStore interface)
// =============================================================================

// SaveQuotation inserts or updates a quotation header.
func (s *Store) SaveQuotation(ctx context.Context, q quote.Quotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO quotations (id, number, customer, part_number, part_name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			customer = excluded.customer,
			part_number = excluded.part_number,
			part_name = excluded.part_name,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		q.ID, q.Number, q.Customer, q.PartNumber, q.PartName, q.Status,
		q.CreatedAt.UTC().Format(time.RFC3339),
		q.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save quotation: %w", err)
	}
	return nil
}

// GetQuotation loads a quotation header.
func (s *Store) GetQuotation(ctx context.Context, id quote.QuotationID) (*quote.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, customer, part_number, part_name, status, created_at, updated_at
		FROM quotations WHERE id = ?`, id)

	q, err := scanQuotation(row)
	if err == sql.ErrNoRows {
		return nil, &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return q, nil
}

// ListQuotations returns all quotation headers ordered by number.
func (s *Store) ListQuotations(ctx context.Context) ([]quote.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, customer, part_number, part_name, status, created_at, updated_at
		FROM quotations ORDER BY number ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var out []quote.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (*quote.Quotation, error) {
	var q quote.Quotation
	var partNumber, partName sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&q.ID, &q.Number, &q.Customer, &partNumber, &partName, &q.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	q.PartNumber = partNumber.String
	q.PartName = partName.String
	q.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	q.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &q, nil
}

// =============================================================================
// CHILD COLLECTIONS - transactional wholesale replacement
// =============================================================================

// ReplaceLines replaces every child line collection of a quotation in one
// SQL transaction. Stale volume pricing is removed in the same transaction
// so children and pricing never drift apart.
func (s *Store) ReplaceLines(ctx context.Context, id quote.QuotationID, lines quote.Lines) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.quotationExists(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"material_lines", "subcon_lines", "routing_lines", "quantity_tiers", "volume_pricing"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE quotation_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	// The fallback list describes the pricing rows cleared above; it goes
	// with them.
	if _, err := tx.ExecContext(ctx, "UPDATE quotations SET rate_fallbacks_json = NULL WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to clear rate fallbacks: %w", err)
	}

	for i, m := range lines.Materials {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO material_lines (quotation_id, position, category, vendor, cost_per_unit, quantity_per_unit)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, m.Category, m.Vendor, m.CostPerUnit.String(), m.QuantityPerUnit.String())
		if err != nil {
			return fmt.Errorf("failed to insert material line: %w", err)
		}
	}
	for i, sc := range lines.Subcons {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO subcon_lines (quotation_id, position, vendor_id, process, cost_per_unit, quantity, cert_required)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, sc.VendorID, sc.Process, sc.CostPerUnit.String(), sc.Quantity, sc.CertRequired)
		if err != nil {
			return fmt.Errorf("failed to insert subcon line: %w", err)
		}
	}
	for i, r := range lines.Routings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO routing_lines (quotation_id, position, op_number, resource_id, setup_minutes, run_minutes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, r.OpNumber, r.ResourceID, r.SetupMinutes.String(), r.RunMinutes.String())
		if err != nil {
			return fmt.Errorf("failed to insert routing line: %w", err)
		}
	}
	for i, t := range lines.Tiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quantity_tiers (quotation_id, position, quantity, target_margin_percent)
			VALUES (?, ?, ?, ?)`,
			id, i, t.Quantity, t.TargetMarginPercent.String())
		if err != nil {
			return fmt.Errorf("failed to insert quantity tier: %w", err)
		}
	}

	return tx.Commit()
}

// GetLines loads every child collection of a quotation.
func (s *Store) GetLines(ctx context.Context, id quote.QuotationID) (*quote.Lines, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.quotationExists(ctx, id); err != nil {
		return nil, err
	}

	lines := &quote.Lines{}
	if err := s.loadMaterialLines(ctx, id, lines); err != nil {
		return nil, err
	}
	if err := s.loadSubconLines(ctx, id, lines); err != nil {
		return nil, err
	}
	if err := s.loadRoutingLines(ctx, id, lines); err != nil {
		return nil, err
	}
	if err := s.loadTiers(ctx, id, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) loadMaterialLines(ctx context.Context, id quote.QuotationID, lines *quote.Lines) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, vendor, cost_per_unit, quantity_per_unit
		FROM material_lines WHERE quotation_id = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("failed to query material lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m costing.MaterialLine
		var cost, qty string
		if err := rows.Scan(&m.Category, &m.Vendor, &cost, &qty); err != nil {
			return err
		}
		if m.CostPerUnit, err = parseDecimal(cost); err != nil {
			return err
		}
		if m.QuantityPerUnit, err = parseDecimal(qty); err != nil {
			return err
		}
		lines.Materials = append(lines.Materials, m)
	}
	return rows.Err()
}

func (s *Store) loadSubconLines(ctx context.Context, id quote.QuotationID, lines *quote.Lines) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor_id, process, cost_per_unit, quantity, cert_required
		FROM subcon_lines WHERE quotation_id = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("failed to query subcon lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc costing.SubconLine
		var cost string
		if err := rows.Scan(&sc.VendorID, &sc.Process, &cost, &sc.Quantity, &sc.CertRequired); err != nil {
			return err
		}
		if sc.CostPerUnit, err = parseDecimal(cost); err != nil {
			return err
		}
		lines.Subcons = append(lines.Subcons, sc)
	}
	return rows.Err()
}

func (s *Store) loadRoutingLines(ctx context.Context, id quote.QuotationID, lines *quote.Lines) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op_number, resource_id, setup_minutes, run_minutes
		FROM routing_lines WHERE quotation_id = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("failed to query routing lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r costing.RoutingLine
		var setup, run string
		if err := rows.Scan(&r.OpNumber, &r.ResourceID, &setup, &run); err != nil {
			return err
		}
		if r.SetupMinutes, err = parseDecimal(setup); err != nil {
			return err
		}
		if r.RunMinutes, err = parseDecimal(run); err != nil {
			return err
		}
		lines.Routings = append(lines.Routings, r)
	}
	return rows.Err()
}

func (s *Store) loadTiers(ctx context.Context, id quote.QuotationID, lines *quote.Lines) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT quantity, target_margin_percent
		FROM quantity_tiers WHERE quotation_id = ? ORDER BY position`, id)
	if err != nil {
		return fmt.Errorf("failed to query quantity tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t costing.QuantityTier
		var margin string
		if err := rows.Scan(&t.Quantity, &margin); err != nil {
			return err
		}
		if t.TargetMarginPercent, err = parseDecimal(margin); err != nil {
			return err
		}
		lines.Tiers = append(lines.Tiers, t)
	}
	return rows.Err()
}

// =============================================================================
// VOLUME PRICING
// =============================================================================

// ReplaceVolumePricing replaces the stored roll-up output in one SQL
// transaction, including the fallback provenance on the header.
func (s *Store) ReplaceVolumePricing(ctx context.Context, id quote.QuotationID, tiers []costing.TierResult, fallbacks []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.quotationExists(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM volume_pricing WHERE quotation_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear volume pricing: %w", err)
	}

	computedAt := time.Now().UTC().Format(time.RFC3339)
	for _, t := range tiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO volume_pricing
			(quotation_id, quantity, hours, labour_cost, material_cost, subcon_cost,
			 total_cost, cost_per_unit, unit_price, margin_percent, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Quantity, t.Hours.String(), t.LabourCost.String(), t.MaterialCost.String(),
			t.SubconCost.String(), t.TotalCost.String(), t.CostPerUnit.String(),
			t.UnitPrice.String(), t.MarginPercent.String(), computedAt)
		if err != nil {
			return fmt.Errorf("failed to insert volume pricing: %w", err)
		}
	}

	fallbackJSON, _ := json.Marshal(fallbacks)
	if _, err := tx.ExecContext(ctx,
		"UPDATE quotations SET rate_fallbacks_json = ? WHERE id = ?",
		string(fallbackJSON), id); err != nil {
		return fmt.Errorf("failed to store fallback provenance: %w", err)
	}

	return tx.Commit()
}

// GetVolumePricing returns the stored roll-up output.
func (s *Store) GetVolumePricing(ctx context.Context, id quote.QuotationID) ([]costing.TierResult, []int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.quotationExists(ctx, id); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT quantity, hours, labour_cost, material_cost, subcon_cost,
		       total_cost, cost_per_unit, unit_price, margin_percent
		FROM volume_pricing WHERE quotation_id = ? ORDER BY quantity ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query volume pricing: %w", err)
	}
	defer rows.Close()

	var tiers []costing.TierResult
	for rows.Next() {
		var t costing.TierResult
		var cols [8]string
		if err := rows.Scan(&t.Quantity, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7]); err != nil {
			return nil, nil, err
		}
		dests := []*decimal.Decimal{
			&t.Hours, &t.LabourCost, &t.MaterialCost, &t.SubconCost,
			&t.TotalCost, &t.CostPerUnit, &t.UnitPrice, &t.MarginPercent,
		}
		for i, raw := range cols {
			if *dests[i], err = parseDecimal(raw); err != nil {
				return nil, nil, err
			}
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var fallbackJSON sql.NullString
	err = s.db.QueryRowContext(ctx,
		"SELECT rate_fallbacks_json FROM quotations WHERE id = ?", id).Scan(&fallbackJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fallback provenance: %w", err)
	}
	var fallbacks []int
	if fallbackJSON.Valid && fallbackJSON.String != "" {
		_ = json.Unmarshal([]byte(fallbackJSON.String), &fallbacks)
	}

	return tiers, fallbacks, nil
}

// =============================================================================
// MATERIALS (quote.MaterialStore interface)
// =============================================================================

// SaveMaterial inserts or updates a material.
func (s *Store) SaveMaterial(ctx context.Context, m costing.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (id, name, default_yield, inflation_rate_per_year, volatility)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_yield = excluded.default_yield,
			inflation_rate_per_year = excluded.inflation_rate_per_year,
			volatility = excluded.volatility`,
		m.ID, m.Name, m.DefaultYield.String(), m.InflationRatePerYear.String(), m.Volatility)
	if err != nil {
		return fmt.Errorf("failed to save material: %w", err)
	}
	return nil
}

// GetMaterial loads a material by id.
func (s *Store) GetMaterial(ctx context.Context, id string) (*costing.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, default_yield, inflation_rate_per_year, volatility
		FROM materials WHERE id = ?`, id)

	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, &quote.NotFoundError{Kind: "material", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

// ListMaterials returns all materials ordered by id.
func (s *Store) ListMaterials(ctx context.Context) ([]costing.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, default_yield, inflation_rate_per_year, volatility
		FROM materials ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var out []costing.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMaterial(row rowScanner) (*costing.Material, error) {
	var m costing.Material
	var yield, inflation string
	if err := row.Scan(&m.ID, &m.Name, &yield, &inflation, &m.Volatility); err != nil {
		return nil, err
	}
	var err error
	if m.DefaultYield, err = parseDecimal(yield); err != nil {
		return nil, err
	}
	if m.InflationRatePerYear, err = parseDecimal(inflation); err != nil {
		return nil, err
	}
	return &m, nil
}

// AddPriceRecord appends one price record. History is append-only: no
// update or delete surface exists for price_records.
func (s *Store) AddPriceRecord(ctx context.Context, r costing.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM materials WHERE id = ?", r.MaterialID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &quote.NotFoundError{Kind: "material", ID: r.MaterialID}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_records (material_id, record_date, price_per_kg)
		VALUES (?, ?, ?)`,
		r.MaterialID, r.RecordDate.UTC().Format(time.RFC3339), r.PricePerKg.String())
	if err != nil {
		return fmt.Errorf("failed to add price record: %w", err)
	}
	return nil
}

// GetPriceRecords returns a material's price history, oldest first.
func (s *Store) GetPriceRecords(ctx context.Context, materialID string) ([]costing.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT material_id, record_date, price_per_kg
		FROM price_records WHERE material_id = ? ORDER BY record_date ASC`, materialID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	var out []costing.PriceRecord
	for rows.Next() {
		var r costing.PriceRecord
		var date, price string
		if err := rows.Scan(&r.MaterialID, &date, &price); err != nil {
			return nil, err
		}
		r.RecordDate, _ = time.Parse(time.RFC3339, date)
		if r.PricePerKg, err = parseDecimal(price); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// RESOURCES (quote.ResourceStore interface)
// =============================================================================

// SaveResource inserts or updates a routing resource.
func (s *Store) SaveResource(ctx context.Context, r quote.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (id, name, cost_per_minute)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cost_per_minute = excluded.cost_per_minute`,
		r.ID, r.Name, r.CostPerMinute.String())
	if err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

// ListResources returns all routing resources ordered by id.
func (s *Store) ListResources(ctx context.Context) ([]quote.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listResources(ctx)
}

func (s *Store) listResources(ctx context.Context) ([]quote.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, cost_per_minute FROM resources ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []quote.Resource
	for rows.Next() {
		var r quote.Resource
		var rate string
		if err := rows.Scan(&r.ID, &r.Name, &rate); err != nil {
			return nil, err
		}
		if r.CostPerMinute, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResourceRates returns every configured rate keyed by resource id.
func (s *Store) ResourceRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources, err := s.listResources(ctx)
	if err != nil {
		return nil, err
	}
	rates := make(map[string]decimal.Decimal, len(resources))
	for _, r := range resources {
		rates[r.ID] = r.CostPerMinute
	}
	return rates, nil
}

// =============================================================================
// SETTINGS (quote.SettingsStore interface)
// =============================================================================

// GetSettings returns all settings rows as a map.
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutSetting inserts or updates one settings row.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to put setting: %w", err)
	}
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Used by demo scenario loaders; never exposed in
// production deployments.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"volume_pricing", "quantity_tiers", "routing_lines", "subcon_lines",
		"material_lines", "price_records", "quotations", "materials",
		"resources", "settings",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// quotationExists returns NotFoundError when the quotation id is unknown.
// Callers hold s.mu.
func (s *Store) quotationExists(ctx context.Context, id quote.QuotationID) error {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quotations WHERE id = ?", id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &quote.NotFoundError{Kind: "quotation", ID: string(id)}
	}
	return nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt decimal value %q: %w", raw, err)
	}
	return d, nil
}
