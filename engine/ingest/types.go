package ingest

// Chunk is a contiguous slice of a lease's OCR text, the unit of
// embedding and retrieval. Indices are 0-based and contiguous.
type Chunk struct {
	Text  string
	Index int
}

// Report summarizes a successful ingestion.
type Report struct {
	LeaseID      int64 `json:"lease_id"`
	ChunksStored int   `json:"chunks_stored"`
}

// EnrichmentResult is the two-phase outcome of best-effort ingestion:
// the primary lease record is saved elsewhere, and this reports whether
// the searchable representation made it into the index.
type EnrichmentResult struct {
	LeaseID      int64  `json:"lease_id"`
	ChunksStored int    `json:"chunks_stored"`
	Error        string `json:"error,omitempty"`
}

// OK reports whether enrichment succeeded.
func (r EnrichmentResult) OK() bool { return r.Error == "" }
