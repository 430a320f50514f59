package export

import (
	"bytes"
	"fmt"

	"rfqdash/pkg/rfq"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet    = "RFQs"
	summarySheet = "Summary"
)

// Workbook writes the filtered rows and their aggregation to an xlsx file.
func Workbook(header []string, records []rfq.Record, res rfq.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), dataSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("add summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeData(f, header, records, headerStyle); err != nil {
		return nil, err
	}
	if err := writeSummary(f, res, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeData(f *excelize.File, header []string, records []rfq.Record, style int) error {
	if len(header) == 0 {
		return nil
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(dataSheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := r.Values
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, res rfq.Result, style int) error {
	row := 1
	put := func(values ...interface{}) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		row++
		return f.SetSheetRow(summarySheet, cell, &values)
	}
	heading := func(values ...interface{}) error {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := put(values...); err != nil {
			return err
		}
		return f.SetCellStyle(summarySheet, start, end, style)
	}

	if res.Empty {
		return put("No data for the current filters")
	}

	steps := []func() error{
		func() error { return heading("KPI", "Value") },
		func() error { return put("Total RFQs", res.KPIs.Total) },
		func() error { return put("Awarded", res.KPIs.Awarded) },
		func() error { return put("Submitted", res.KPIs.Submitted) },
		func() error { return put("Declined", res.KPIs.Declined) },
		func() error { return put("Awarded %", res.KPIs.AwardedRatio) },
		func() error { return put("Declined %", res.KPIs.DeclinedRatio) },
		func() error { row++; return heading("Status", "Count", "Percentage") },
	}
	for _, s := range res.StatusBreakdown {
		s := s
		steps = append(steps, func() error { return put(s.Status, s.Count, s.Percentage) })
	}
	steps = append(steps, func() error { row++; return heading("Month", "Count") })
	for _, m := range res.MonthlyTrend {
		m := m
		steps = append(steps, func() error { return put(m.Month, m.Count) })
	}
	steps = append(steps, func() error { row++; return heading("Client", "Affiliate", "Count") })
	for _, p := range res.ClientAffiliate {
		p := p
		steps = append(steps, func() error { return put(p.Client, p.Affiliate, p.Count) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}
