// Package domain holds the core types and validation rules shared by the
// contract ingestion and retrieval pipelines.
package domain

import (
	"strconv"
	"strings"
)

// LeaseMeta is the provenance metadata attached to every indexed chunk.
// It is denormalized from the relational lease record at ingestion time.
type LeaseMeta struct {
	ContractNo string `json:"contract_no"`
	TenantID   int64  `json:"tenant_id,omitempty"`
	PropertyID int64  `json:"property_id,omitempty"`
	UserID     string `json:"user_id"`
}

// LeaseDocument is the ingestion input: a lease's OCR text plus metadata.
// Text may be empty; a contract with no extractable text is not an error.
type LeaseDocument struct {
	LeaseID int64     `json:"lease_id"`
	Text    string    `json:"text"`
	Meta    LeaseMeta `json:"meta"`
}

// ValidateLeaseDocument checks a document before ingestion.
func ValidateLeaseDocument(doc LeaseDocument) error {
	if doc.LeaseID <= 0 {
		return NewValidationError("lease_id", strconv.FormatInt(doc.LeaseID, 10), ErrInvalidLeaseID)
	}
	return nil
}

// ValidateQuery checks a retrieval query and limit.
func ValidateQuery(query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return NewValidationError("query", query, ErrEmptyQuery)
	}
	if limit <= 0 {
		return NewValidationError("limit", strconv.Itoa(limit), ErrInvalidLimit)
	}
	return nil
}
