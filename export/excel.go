package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Quotation"

// GenerateExcel renders the quotation as an Excel workbook and returns the
// file bytes.
func GenerateExcel(data QuoteData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F"}
	lastCol := columns[len(columns)-1]
	widths := []float64{14, 24, 14, 14, 14, 14}
	for i, c := range columns {
		if err := f.SetColWidth(sheetName, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	if err != nil {
		return nil, fmt.Errorf("create section style: %w", err)
	}

	// Header block.
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Quotation %s - %s", data.Number, data.Customer))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	part := data.PartNumber
	if data.PartName != "" {
		part = fmt.Sprintf("%s - %s", data.PartNumber, data.PartName)
	}
	f.SetCellValue(sheetName, "A2", "Part: "+part)
	f.SetCellStyle(sheetName, "A2", lastCol+"2", subtitleStyle)
	f.SetCellValue(sheetName, "A3", "Status: "+strings.ToUpper(data.Status))
	f.SetCellValue(sheetName, "A4", "Date: "+data.GeneratedAt.Format("2006-01-02"))
	f.SetCellStyle(sheetName, "A3", lastCol+"4", subtitleStyle)

	rowNum := 6

	writeHeader := func(labels []string) {
		for i, label := range labels {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", columns[i], rowNum), label)
		}
		f.SetCellStyle(sheetName,
			fmt.Sprintf("A%d", rowNum),
			fmt.Sprintf("%s%d", columns[len(labels)-1], rowNum),
			headerStyle)
		rowNum++
	}
	writeBody := func(values []any) {
		for i, v := range values {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", columns[i], rowNum), v)
		}
		f.SetCellStyle(sheetName,
			fmt.Sprintf("A%d", rowNum),
			fmt.Sprintf("%s%d", columns[len(values)-1], rowNum),
			bodyStyle)
		rowNum++
	}
	writeSection := func(label string) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), label)
		f.SetCellStyle(sheetName,
			fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), sectionStyle)
		rowNum++
	}

	// Volume pricing.
	if len(data.Pricing) > 0 {
		writeSection("Volume Pricing")
		writeHeader([]string{"Qty", "Total Cost", "Cost/Unit", "Margin %", "Unit Price", "Hours"})
		for _, t := range data.Pricing {
			writeBody([]any{
				t.Quantity,
				t.TotalCost.StringFixed(2),
				t.CostPerUnit.StringFixed(2),
				t.MarginPercent.StringFixed(1),
				t.UnitPrice.StringFixed(2),
				t.Hours.StringFixed(2),
			})
		}
		rowNum++
	}

	// Materials.
	if len(data.Materials) > 0 {
		writeSection("Materials")
		writeHeader([]string{"Category", "Vendor", "Cost/Unit", "Qty/Unit"})
		for _, line := range data.Materials {
			writeBody([]any{
				line.Category,
				line.Vendor,
				line.CostPerUnit.StringFixed(2),
				line.QuantityPerUnit.String(),
			})
		}
		rowNum++
	}

	// Routing.
	if len(data.Routings) > 0 {
		writeSection("Routing")
		writeHeader([]string{"Op", "Resource", "Setup (min)", "Run (min)"})
		for _, line := range data.Routings {
			writeBody([]any{
				line.OpNumber,
				line.ResourceID,
				line.SetupMinutes.String(),
				line.RunMinutes.String(),
			})
		}
		rowNum++
	}

	// Subcontracted processes.
	if len(data.Subcons) > 0 {
		writeSection("Subcontracted Processes")
		writeHeader([]string{"Process", "Vendor", "Cost/Unit", "Qty", "Cert Required"})
		for _, line := range data.Subcons {
			cert := ""
			if line.CertRequired {
				cert = "Yes"
			}
			writeBody([]any{
				line.Process,
				line.VendorID,
				line.CostPerUnit.StringFixed(2),
				line.Quantity,
				cert,
			})
		}
		rowNum++
	}

	if len(data.RateFallbacks) > 0 {
		ops := make([]string, len(data.RateFallbacks))
		for i, op := range data.RateFallbacks {
			ops[i] = fmt.Sprintf("%d", op)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum),
			fmt.Sprintf("Note: operations %s priced at the default labour rate.", strings.Join(ops, ", ")))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#CCCCCC", Style: 1},
		{Type: "right", Color: "#CCCCCC", Style: 1},
		{Type: "top", Color: "#CCCCCC", Style: 1},
		{Type: "bottom", Color: "#CCCCCC", Style: 1},
	}
}
