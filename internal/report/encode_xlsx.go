package report

import (
	"fmt"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const worksheetName = "Weather Report"

// columnWidths mirrors the header order: postal code, three temperatures,
// description, timestamp, user email.
var columnWidths = []float64{12, 12, 12, 12, 20, 18, 25}

func encodeXLSX(job domain.ReportJob, observations []domain.WeatherObservation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", worksheetName); err != nil {
		return nil, fmt.Errorf("name worksheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(reportColumns))
	for i, c := range reportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(worksheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if err := f.SetCellStyle(worksheetName, "A1", "G1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header row: %w", err)
	}

	for i, obs := range observations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("compute row cell: %w", err)
		}
		row := []any{
			obs.PostalCode,
			obs.Temperature,
			obs.TempMin,
			obs.TempMax,
			obs.Description,
			obs.CreatedAt.Format(timestampLayout),
			job.UserEmail,
		}
		if err := f.SetSheetRow(worksheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("compute column name: %w", err)
		}
		if err := f.SetColWidth(worksheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
