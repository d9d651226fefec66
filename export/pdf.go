package export

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// GeneratePDF renders the quotation as a PDF document and returns the raw
// bytes.
func GeneratePDF(data QuoteData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, data)
	addPricingTable(m, data)
	addMaterialTable(m, data)
	addRoutingTable(m, data)
	addSubconTable(m, data)
	addFallbackNote(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quotation PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addHeader(m core.Maroto, data QuoteData) {
	m.AddRows(
		row.New(10).Add(
			col.New(6).Add(
				text.New(data.Customer, props.Text{
					Size:  14,
					Style: fontstyle.Bold,
					Align: align.Left,
				}),
			),
			col.New(6).Add(
				text.New("QUOTATION", props.Text{
					Size:  14,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: &props.Color{Red: 33, Green: 37, Blue: 41},
				}),
			),
		),
	)

	part := data.PartNumber
	if data.PartName != "" {
		part = fmt.Sprintf("%s | %s", data.PartNumber, data.PartName)
	}
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(
				text.New(part, props.Text{
					Size:  8,
					Align: align.Left,
					Color: &props.Color{Red: 100, Green: 100, Blue: 100},
				}),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("No: %s", data.Number), props.Text{
					Size:  10,
					Style: fontstyle.Bold,
					Align: align.Right,
				}),
			),
		),
	)
	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("Status: %s", strings.ToUpper(data.Status)), props.Text{
					Size:  7,
					Align: align.Left,
					Color: &props.Color{Red: 100, Green: 100, Blue: 100},
				}),
			),
			col.New(6).Add(
				text.New(data.GeneratedAt.Format("2006-01-02"), props.Text{
					Size:  7,
					Align: align.Right,
					Color: &props.Color{Red: 100, Green: 100, Blue: 100},
				}),
			),
		),
	)
	m.AddRows(row.New(3))
}

func sectionLabelRow(m core.Maroto, label string) {
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(text.New(label, props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Align: align.Left,
				Color: &props.Color{Red: 33, Green: 37, Blue: 41},
			})),
		),
	)
}

func tableHeaderRow(m core.Maroto, widths []int, labels []string) {
	headerText := props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerCell := props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}

	cols := make([]core.Col, len(labels))
	for i, label := range labels {
		cols[i] = col.New(widths[i]).Add(text.New(label, headerText)).WithStyle(&headerCell)
	}
	m.AddRows(row.New(8).Add(cols...))
}

func tableBodyRow(m core.Maroto, index int, widths []int, values []string) {
	bodyText := props.Text{Size: 7, Align: align.Right}
	firstText := props.Text{Size: 7, Align: align.Left}

	var cellStyle *props.Cell
	if index%2 == 1 {
		cellStyle = &props.Cell{BackgroundColor: &props.Color{Red: 248, Green: 249, Blue: 250}}
	}

	cols := make([]core.Col, len(values))
	for i, value := range values {
		style := bodyText
		if i == 0 {
			style = firstText
		}
		c := col.New(widths[i]).Add(text.New(value, style))
		if cellStyle != nil {
			c = c.WithStyle(cellStyle)
		}
		cols[i] = c
	}
	m.AddRows(row.New(7).Add(cols...))
}

// addPricingTable renders the volume pricing, one row per quantity tier.
func addPricingTable(m core.Maroto, data QuoteData) {
	if len(data.Pricing) == 0 {
		return
	}
	sectionLabelRow(m, "VOLUME PRICING")

	widths := []int{2, 2, 2, 2, 2, 2}
	tableHeaderRow(m, widths, []string{"Qty", "Total Cost", "Cost/Unit", "Margin %", "Unit Price", "Hours"})
	for i, t := range data.Pricing {
		tableBodyRow(m, i, widths, []string{
			fmt.Sprintf("%d", t.Quantity),
			t.TotalCost.StringFixed(2),
			t.CostPerUnit.StringFixed(2),
			t.MarginPercent.StringFixed(1),
			t.UnitPrice.StringFixed(2),
			t.Hours.StringFixed(2),
		})
	}
	m.AddRows(row.New(3))
}

func addMaterialTable(m core.Maroto, data QuoteData) {
	if len(data.Materials) == 0 {
		return
	}
	sectionLabelRow(m, "MATERIALS")

	widths := []int{4, 3, 3, 2}
	tableHeaderRow(m, widths, []string{"Category", "Vendor", "Cost/Unit", "Qty/Unit"})
	for i, line := range data.Materials {
		tableBodyRow(m, i, widths, []string{
			line.Category,
			line.Vendor,
			line.CostPerUnit.StringFixed(2),
			line.QuantityPerUnit.String(),
		})
	}
	m.AddRows(row.New(3))
}

func addRoutingTable(m core.Maroto, data QuoteData) {
	if len(data.Routings) == 0 {
		return
	}
	sectionLabelRow(m, "ROUTING")

	widths := []int{2, 4, 3, 3}
	tableHeaderRow(m, widths, []string{"Op", "Resource", "Setup (min)", "Run (min)"})
	for i, line := range data.Routings {
		resource := line.ResourceID
		if resource == "" {
			resource = "-"
		}
		tableBodyRow(m, i, widths, []string{
			fmt.Sprintf("%d", line.OpNumber),
			resource,
			line.SetupMinutes.String(),
			line.RunMinutes.String(),
		})
	}
	m.AddRows(row.New(3))
}

func addSubconTable(m core.Maroto, data QuoteData) {
	if len(data.Subcons) == 0 {
		return
	}
	sectionLabelRow(m, "SUBCONTRACTED PROCESSES")

	widths := []int{4, 3, 2, 2, 1}
	tableHeaderRow(m, widths, []string{"Process", "Vendor", "Cost/Unit", "Qty", "Cert"})
	for i, line := range data.Subcons {
		cert := ""
		if line.CertRequired {
			cert = "Yes"
		}
		tableBodyRow(m, i, widths, []string{
			line.Process,
			line.VendorID,
			line.CostPerUnit.StringFixed(2),
			fmt.Sprintf("%d", line.Quantity),
			cert,
		})
	}
	m.AddRows(row.New(3))
}

// addFallbackNote flags operations priced with the default labour rate.
func addFallbackNote(m core.Maroto, data QuoteData) {
	if len(data.RateFallbacks) == 0 {
		return
	}

	ops := make([]string, len(data.RateFallbacks))
	for i, op := range data.RateFallbacks {
		ops[i] = fmt.Sprintf("%d", op)
	}
	m.AddRows(
		row.New(7).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Note: operations %s priced at the default labour rate (no resource rate configured).", strings.Join(ops, ", ")),
					props.Text{
						Size:  7,
						Style: fontstyle.Italic,
						Align: align.Left,
						Color: &props.Color{Red: 100, Green: 100, Blue: 100},
					},
				),
			),
		),
	)
}
