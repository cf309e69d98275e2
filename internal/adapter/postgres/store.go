// Package postgres persists weather observations and report jobs on a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schemaSQL = `
    CREATE TABLE IF NOT EXISTS weather_observations (
        id          BIGSERIAL PRIMARY KEY,
        postal_code TEXT        NOT NULL,
        temperature DOUBLE PRECISION NOT NULL,
        temp_min    DOUBLE PRECISION NOT NULL,
        temp_max    DOUBLE PRECISION NOT NULL,
        description TEXT        NOT NULL,
        user_id     TEXT        NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS weather_observations_postal_code_created_at_idx
        ON weather_observations (postal_code, created_at DESC);
    CREATE INDEX IF NOT EXISTS weather_observations_user_id_idx
        ON weather_observations (user_id);

    CREATE TABLE IF NOT EXISTS report_jobs (
        id                 UUID PRIMARY KEY,
        user_id            TEXT        NOT NULL,
        user_email         TEXT        NOT NULL,
        format             TEXT        NOT NULL,
        status             TEXT        NOT NULL,
        postal_code        TEXT        NOT NULL DEFAULT '',
        created_after      TIMESTAMPTZ,
        created_before     TIMESTAMPTZ,
        file_data          BYTEA,
        error_message      TEXT        NOT NULL DEFAULT '',
        email_notification BOOLEAN     NOT NULL DEFAULT FALSE,
        attempts           INT         NOT NULL DEFAULT 0,
        created_at         TIMESTAMPTZ NOT NULL,
        completed_at       TIMESTAMPTZ
    );
    CREATE INDEX IF NOT EXISTS report_jobs_user_id_created_at_idx
        ON report_jobs (user_id, created_at DESC);
`

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const insertObservationSQL = `
    INSERT INTO weather_observations (postal_code, temperature, temp_min, temp_max, description, user_id, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// InsertObservation records a successful provider lookup.
func (s *Store) InsertObservation(ctx context.Context, obs domain.WeatherObservation) error {
	_, err := s.pool.Exec(ctx, insertObservationSQL,
		obs.PostalCode,
		obs.Temperature,
		obs.TempMin,
		obs.TempMax,
		obs.Description,
		obs.UserID,
		obs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

const latestObservationSQL = `
    SELECT id, postal_code, temperature, temp_min, temp_max, description, user_id, created_at
    FROM weather_observations
    WHERE postal_code = $1
    ORDER BY created_at DESC
    LIMIT 1
`

// LatestObservation returns the most recent observation for the postal code,
// or nil when none exists.
func (s *Store) LatestObservation(ctx context.Context, postalCode string) (*domain.WeatherObservation, error) {
	row := s.pool.QueryRow(ctx, latestObservationSQL, postalCode)

	obs, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest observation: %w", err)
	}
	return &obs, nil
}

const observationsBase = `
    SELECT id, postal_code, temperature, temp_min, temp_max, description, user_id, created_at
    FROM weather_observations
    WHERE user_id = $1
`

// ListObservations returns a page of the user's lookup history matching the
// filters, most recent first.
func (s *Store) ListObservations(ctx context.Context, userID string, filters domain.ReportFilters, limit, offset int) ([]domain.WeatherObservation, error) {
	clause, args := filterClause(filters, []any{userID})
	argPos := len(args) + 1
	sql := observationsBase + clause +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(argPos) +
		" OFFSET $" + strconv.Itoa(argPos+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// ObservationsForReport returns the user's observations matching the report
// filters, most recent first.
func (s *Store) ObservationsForReport(ctx context.Context, userID string, filters domain.ReportFilters) ([]domain.WeatherObservation, error) {
	clause, args := filterClause(filters, []any{userID})
	sql := observationsBase + clause + " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("observations for report: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// filterClause appends AND conditions for the set filters, continuing the
// placeholder numbering from the seed args.
func filterClause(filters domain.ReportFilters, args []any) (string, []any) {
	clause := ""
	argPos := len(args) + 1
	if filters.PostalCode != "" {
		// Substring match: "310" matches CEP 01310100.
		clause += " AND postal_code LIKE $" + strconv.Itoa(argPos)
		args = append(args, "%"+filters.PostalCode+"%")
		argPos++
	}
	if filters.CreatedAfter != nil {
		clause += " AND created_at >= $" + strconv.Itoa(argPos)
		args = append(args, *filters.CreatedAfter)
		argPos++
	}
	if filters.CreatedBefore != nil {
		clause += " AND created_at <= $" + strconv.Itoa(argPos)
		args = append(args, *filters.CreatedBefore)
	}
	return clause, args
}

func scanObservation(row pgx.Row) (domain.WeatherObservation, error) {
	var obs domain.WeatherObservation
	err := row.Scan(
		&obs.ID,
		&obs.PostalCode,
		&obs.Temperature,
		&obs.TempMin,
		&obs.TempMax,
		&obs.Description,
		&obs.UserID,
		&obs.CreatedAt,
	)
	return obs, err
}

func collectObservations(rows pgx.Rows) ([]domain.WeatherObservation, error) {
	observations := make([]domain.WeatherObservation, 0)
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
