package semantic

// SearchResult is a single ranked similarity hit. Results come back from
// Qdrant in non-increasing score order.
type SearchResult struct {
	ID         uint64  `json:"id"`
	Score      float32 `json:"score"`
	ChunkText  string  `json:"chunk_text"`
	ChunkIndex int64   `json:"chunk_index"`
	LeaseID    int64   `json:"lease_id"`
	ContractNo string  `json:"contract_no"`
	UserID     string  `json:"user_id"`
}

// VectorRecord is a single point to store: the chunk's embedding plus its
// provenance payload (lease_id, chunk_index, chunk_text, contract_no,
// tenant_id, property_id, user_id).
type VectorRecord struct {
	ID        uint64
	Embedding []float32
	Payload   map[string]any
}
