package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store is the postgres-backed durable usage aggregate. Rows are hourly
// per-company buckets; the flusher upserts into them so replayed flushes
// accumulate rather than overwrite.
type Store struct {
	db *sql.DB
}

// NewStore creates a usage store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the usage_records table if it does not exist
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS usage_records (
			company_id BIGINT NOT NULL,
			period_start TIMESTAMPTZ NOT NULL,
			request_count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (company_id, period_start)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating usage_records table: %w", err)
	}
	return nil
}

// Add accumulates a drained bucket into the durable aggregate
func (s *Store) Add(ctx context.Context, bucket Bucket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (company_id, period_start, request_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, period_start)
		DO UPDATE SET request_count = usage_records.request_count + EXCLUDED.request_count
	`, bucket.CompanyID, bucket.PeriodStart, bucket.Requests)
	if err != nil {
		return fmt.Errorf("recording usage for company %d: %w", bucket.CompanyID, err)
	}
	return nil
}

// CompanyBuckets returns one company's buckets since the given time, oldest first
func (s *Store) CompanyBuckets(ctx context.Context, companyID int64, since time.Time) ([]Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, period_start, request_count
		FROM usage_records
		WHERE company_id = $1 AND period_start >= $2
		ORDER BY period_start ASC
	`, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("querying usage for company %d: %w", companyID, err)
	}
	return scanBuckets(rows)
}

// GlobalBuckets returns all companies' buckets since the given time
func (s *Store) GlobalBuckets(ctx context.Context, since time.Time) ([]Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, period_start, request_count
		FROM usage_records
		WHERE period_start >= $1
		ORDER BY period_start ASC, company_id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("querying global usage: %w", err)
	}
	return scanBuckets(rows)
}

func scanBuckets(rows *sql.Rows) ([]Bucket, error) {
	defer rows.Close()
	var buckets []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.CompanyID, &b.PeriodStart, &b.Requests); err != nil {
			return nil, fmt.Errorf("scanning usage bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
