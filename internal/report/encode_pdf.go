package report

import (
	"bytes"
	"fmt"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/go-pdf/fpdf"
)

// pdfColumnWidths sums to the printable width of an A4 portrait page with
// default margins. Description gets the widest column.
var pdfColumnWidths = []float64{24, 22, 20, 20, 42, 32, 30}

func encodePDF(job domain.ReportJob, observations []domain.WeatherObservation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "Weather Lookup Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, tr("User: "+job.UserEmail), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated at: "+domain.Now().Format(timestampLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total records: %d", len(observations)), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	if !job.Filters.Empty() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 7, "Applied filters:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		if job.Filters.PostalCode != "" {
			pdf.CellFormat(0, 6, tr("Postal code: "+job.Filters.PostalCode), "", 1, "L", false, 0, "")
		}
		if job.Filters.CreatedAfter != nil {
			pdf.CellFormat(0, 6, "From: "+job.Filters.CreatedAfter.Format(timestampLayout), "", 1, "L", false, 0, "")
		}
		if job.Filters.CreatedBefore != nil {
			pdf.CellFormat(0, 6, "Until: "+job.Filters.CreatedBefore.Format(timestampLayout), "", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	if len(observations) == 0 {
		pdf.SetFont("Helvetica", "", 14)
		pdf.CellFormat(0, 10, "No records found with the applied filters.", "", 1, "C", false, 0, "")
	} else {
		writePDFTable(pdf, tr, job, observations)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFTable(pdf *fpdf.Fpdf, tr func(string) string, job domain.ReportJob, observations []domain.WeatherObservation) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(221, 221, 221)
	for i, col := range reportColumns {
		pdf.CellFormat(pdfColumnWidths[i], 8, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	rows := observations
	truncated := false
	if len(rows) > pdfRowLimit {
		rows = rows[:pdfRowLimit]
		truncated = true
	}

	pdf.SetFont("Helvetica", "", 8)
	for i, obs := range rows {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(240, 240, 240)
		}
		for j, value := range reportRow(job, obs) {
			pdf.CellFormat(pdfColumnWidths[j], 7, tr(value), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if truncated {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("* Showing only the first %d records", pdfRowLimit), "", 1, "L", false, 0, "")
	}
}
