// Package repo reads lease records from the relational document store.
// The pipeline only ever consumes this store; the primary record is
// owned and written by the surrounding application.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/rentora-engine/engine/domain"
)

// Lease is one row of the leases table, with the OCR text to ingest.
type Lease struct {
	ID         int64
	ContractNo string
	TenantID   int64
	PropertyID int64
	UserID     string
	OCRText    string
}

// Document converts a lease row into the pipeline's ingestion input.
func (l Lease) Document() domain.LeaseDocument {
	return domain.LeaseDocument{
		LeaseID: l.ID,
		Text:    l.OCRText,
		Meta: domain.LeaseMeta{
			ContractNo: l.ContractNo,
			TenantID:   l.TenantID,
			PropertyID: l.PropertyID,
			UserID:     l.UserID,
		},
	}
}

// LeaseStore reads leases from Postgres.
type LeaseStore struct {
	pool *pgxpool.Pool
}

// NewLeaseStore connects a pooled, read-only lease reader.
func NewLeaseStore(ctx context.Context, dsn string) (*LeaseStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, domain.E(domain.KindConfig, "repo: connect", err)
	}
	return &LeaseStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *LeaseStore) Close() {
	s.pool.Close()
}

const leaseColumns = `id, contract_no, coalesce(tenant_id, 0), coalesce(property_id, 0), coalesce(user_id, ''), coalesce(ocr_text, '')`

// Get fetches one lease by id.
func (s *LeaseStore) Get(ctx context.Context, id int64) (Lease, error) {
	var l Lease
	row := s.pool.QueryRow(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE id = $1`, id)
	if err := row.Scan(&l.ID, &l.ContractNo, &l.TenantID, &l.PropertyID, &l.UserID, &l.OCRText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lease{}, domain.Ef(domain.KindNotFound, "repo: get lease", "lease %d not found", id)
		}
		return Lease{}, fmt.Errorf("repo: get lease %d: %w", id, err)
	}
	return l, nil
}

// ListWithText returns every lease that has OCR text to ingest.
func (s *LeaseStore) ListWithText(ctx context.Context) ([]Lease, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE ocr_text IS NOT NULL AND ocr_text <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repo: list leases: %w", err)
	}
	defer rows.Close()

	var leases []Lease
	for rows.Next() {
		var l Lease
		if err := rows.Scan(&l.ID, &l.ContractNo, &l.TenantID, &l.PropertyID, &l.UserID, &l.OCRText); err != nil {
			return nil, fmt.Errorf("repo: scan lease: %w", err)
		}
		leases = append(leases, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list leases: %w", err)
	}
	return leases, nil
}
