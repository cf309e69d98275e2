package postgres

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFilterClause_Empty(t *testing.T) {
	clause, args := filterClause(domain.ReportFilters{}, []any{"user-1"})

	assert.Empty(t, clause)
	assert.Equal(t, []any{"user-1"}, args)
}

func TestFilterClause_PostalCodeIsSubstringMatch(t *testing.T) {
	clause, args := filterClause(domain.ReportFilters{PostalCode: "310"}, []any{"user-1"})

	assert.Equal(t, " AND postal_code LIKE $2", clause)
	// A mid-string fragment must match: CEP 01310100 contains "310".
	assert.Equal(t, []any{"user-1", "%310%"}, args)
}

func TestFilterClause_AllFilters(t *testing.T) {
	after := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	clause, args := filterClause(domain.ReportFilters{
		PostalCode:    "0131",
		CreatedAfter:  &after,
		CreatedBefore: &before,
	}, []any{"user-1"})

	assert.Equal(t, " AND postal_code LIKE $2 AND created_at >= $3 AND created_at <= $4", clause)
	assert.Equal(t, []any{"user-1", "%0131%", after, before}, args)
}

func TestFilterClause_TimeRangeOnly(t *testing.T) {
	after := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	clause, args := filterClause(domain.ReportFilters{CreatedAfter: &after}, []any{"user-1"})

	assert.Equal(t, " AND created_at >= $2", clause)
	assert.Equal(t, []any{"user-1", after}, args)
}
