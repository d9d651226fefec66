/*
Package export renders finalized and draft quotations into customer-facing
documents.

PURPOSE:
  Assembles a flat, render-ready view of a quotation (header, line
  collections, stored volume pricing) and generates PDF and Excel documents
  from it. Renderers never touch the store: callers load everything first
  and hand over a QuoteData.

FORMATS:
  PDF:   maroto/v2, A4 portrait. Quotation header, line tables, and a
         volume pricing table with one row per quantity tier.
  Excel: excelize/v2, single worksheet mirroring the PDF content with
         styled header rows.

MONEY:
  All money renders with two decimal places via decimal.StringFixed(2).

SEE ALSO:
  - pdf.go, excel.go: The renderers
  - api/handlers.go: Export endpoints
*/
package export

import (
	"time"

	"github.com/fabriq/quote-engine/costing"
	"github.com/fabriq/quote-engine/quote"
)

// QuoteData is the flat snapshot handed to the renderers.
type QuoteData struct {
	Number     string
	Customer   string
	PartNumber string
	PartName   string
	Status     string

	Materials []costing.MaterialLine
	Subcons   []costing.SubconLine
	Routings  []costing.RoutingLine

	Pricing []costing.TierResult

	// Operation numbers priced with the fallback labour rate. Surfaced on
	// the document so a reviewer knows which rows to double-check.
	RateFallbacks []int

	GeneratedAt time.Time
}

// Assemble builds a QuoteData from stored state.
func Assemble(q quote.Quotation, lines quote.Lines, pricing []costing.TierResult, fallbacks []int, now time.Time) QuoteData {
	return QuoteData{
		Number:        q.Number,
		Customer:      q.Customer,
		PartNumber:    q.PartNumber,
		PartName:      q.PartName,
		Status:        string(q.Status),
		Materials:     lines.Materials,
		Subcons:       lines.Subcons,
		Routings:      lines.Routings,
		Pricing:       pricing,
		RateFallbacks: fallbacks,
		GeneratedAt:   now,
	}
}
