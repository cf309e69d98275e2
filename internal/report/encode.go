package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
)

// timestampLayout formats observation timestamps in every encoding.
const timestampLayout = "02/01/2006 15:04"

// pdfRowLimit caps the PDF table; the full set would blow up page count
// for large histories. CSV and XLSX are never truncated.
const pdfRowLimit = 100

// reportColumns is the shared header. All three encodings emit these
// columns in this order so outputs are comparable across formats.
var reportColumns = []string{
	"Postal Code",
	"Temperature",
	"Temp Min",
	"Temp Max",
	"Description",
	"Date/Time",
	"User",
}

// Encode renders the observation set in the job's requested format. The
// observations are expected in creation-time-descending order; encoders
// preserve the order they are given.
func Encode(job domain.ReportJob, observations []domain.WeatherObservation) ([]byte, error) {
	switch job.Format {
	case domain.FormatCSV:
		return encodeCSV(job, observations)
	case domain.FormatXLSX:
		return encodeXLSX(job, observations)
	case domain.FormatPDF:
		return encodePDF(job, observations)
	}
	return nil, fmt.Errorf("unsupported report format: %q", job.Format)
}

// reportRow renders one observation as the shared column values.
func reportRow(job domain.ReportJob, obs domain.WeatherObservation) []string {
	return []string{
		obs.PostalCode,
		formatTemp(obs.Temperature),
		formatTemp(obs.TempMin),
		formatTemp(obs.TempMax),
		obs.Description,
		obs.CreatedAt.Format(timestampLayout),
		job.UserEmail,
	}
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encodeCSV(job domain.ReportJob, observations []domain.WeatherObservation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, obs := range observations {
		if err := w.Write(reportRow(job, obs)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
