package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrReportNotFound is returned when a job ID does not exist (or belongs to
// a different user, which callers must not be able to distinguish).
var ErrReportNotFound = errors.New("report not found")

// ReportFormat is the requested encoding of a report.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatXLSX ReportFormat = "xlsx"
	FormatPDF  ReportFormat = "pdf"
)

// ReportFormats lists the supported encodings.
func ReportFormats() []ReportFormat {
	return []ReportFormat{FormatCSV, FormatXLSX, FormatPDF}
}

// Valid reports whether f is a supported encoding.
func (f ReportFormat) Valid() bool {
	switch f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return true
	}
	return false
}

// ContentType returns the MIME type served on download.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// ReportStatus is the persisted lifecycle state of a job.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// Terminal reports whether no further transition may leave s.
func (s ReportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReportFilters narrows the observation set a report is built from. The
// zero value matches everything the owning user has.
type ReportFilters struct {
	PostalCode    string     `json:"postal_code,omitempty"`    // substring match
	CreatedAfter  *time.Time `json:"created_after,omitempty"`  // inclusive
	CreatedBefore *time.Time `json:"created_before,omitempty"` // inclusive
}

// Empty reports whether no filter is set.
func (f ReportFilters) Empty() bool {
	return f.PostalCode == "" && f.CreatedAfter == nil && f.CreatedBefore == nil
}

// ReportJob is one report generation request and its durable outcome. The
// record carries everything the worker needs, so a run is reproducible from
// the job ID alone on any process.
type ReportJob struct {
	ID                uuid.UUID
	UserID            string
	UserEmail         string
	Format            ReportFormat
	Status            ReportStatus
	Filters           ReportFilters
	FileData          []byte // set iff Status == completed
	ErrorMessage      string // set iff Status == failed
	EmailNotification bool
	Attempts          int
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// NewReportJob creates a pending job for the given owner.
func NewReportJob(userID, userEmail string, format ReportFormat, filters ReportFilters, emailNotification bool) ReportJob {
	return ReportJob{
		ID:                uuid.New(),
		UserID:            userID,
		UserEmail:         userEmail,
		Format:            format,
		Status:            StatusPending,
		Filters:           filters,
		EmailNotification: emailNotification,
		CreatedAt:         Now(),
	}
}

// Filename returns the download file name, derived from the creation time.
func (j ReportJob) Filename() string {
	return fmt.Sprintf("weather_report_%s.%s", j.CreatedAt.Format("20060102_150405"), j.Format)
}

// FileSize returns the size of the generated payload in bytes.
func (j ReportJob) FileSize() int {
	return len(j.FileData)
}
