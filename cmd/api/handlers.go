package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/engine/ingest"
	"github.com/rentora/rentora-engine/engine/rag"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/metrics"
)

type api struct {
	pipeline *ingest.Pipeline
	rag      *rag.Service
	validate *validator.Validate
	logger   *slog.Logger

	mIngests  *metrics.Counter
	mQueries  *metrics.Counter
	mSearches *metrics.Counter
	mErrors   *metrics.Counter
	mLatency  *metrics.Histogram
}

func newAPI(pipeline *ingest.Pipeline, ragSvc *rag.Service, met *metrics.Registry, logger *slog.Logger) *api {
	return &api{
		pipeline:  pipeline,
		rag:       ragSvc,
		validate:  validator.New(),
		logger:    logger,
		mIngests:  met.Counter("contract_api_ingests_total", "Documents ingested"),
		mQueries:  met.Counter("contract_api_queries_total", "Grounded answers served"),
		mSearches: met.Counter("contract_api_searches_total", "Raw searches served"),
		mErrors:   met.Counter("contract_api_errors_total", "Request failures"),
		mLatency:  met.Histogram("contract_api_request_seconds", "Request latency", nil),
	}
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	LeaseID    int64  `json:"lease_id" validate:"required,gt=0"`
	Text       string `json:"text"`
	ContractNo string `json:"contract_no"`
	TenantID   int64  `json:"tenant_id"`
	PropertyID int64  `json:"property_id"`
	UserID     string `json:"user_id" validate:"required"`
}

func (a *api) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !a.decode(w, r, &req) {
		return
	}

	report, err := a.pipeline.Ingest(r.Context(), domain.LeaseDocument{
		LeaseID: req.LeaseID,
		Text:    req.Text,
		Meta: domain.LeaseMeta{
			ContractNo: req.ContractNo,
			TenantID:   req.TenantID,
			PropertyID: req.PropertyID,
			UserID:     req.UserID,
		},
	})
	if err != nil {
		a.fail(w, "ingest", err)
		return
	}

	a.mIngests.Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"lease_id":      report.LeaseID,
		"chunks_stored": report.ChunksStored,
	})
}

// queryRequest is the JSON body for POST /api/query and /api/search.
type queryRequest struct {
	Question string `json:"question" validate:"required"`
	UserID   string `json:"user_id"`
	Limit    int    `json:"limit" validate:"gte=0"`
}

func (a *api) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !a.decode(w, r, &req) {
		return
	}

	answer, err := a.rag.Answer(r.Context(), req.Question, req.UserID, req.Limit)
	if err != nil {
		a.fail(w, "query", err)
		return
	}

	a.mQueries.Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"answer":  answer.Text,
		"sources": answer.Sources,
	})
}

// handleSearch returns raw ranked chunks without generation, for
// debugging and listing.
func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !a.decode(w, r, &req) {
		return
	}

	results, err := a.rag.Retrieve(r.Context(), req.Question, req.UserID, req.Limit)
	if err != nil {
		a.fail(w, "search", err)
		return
	}
	if results == nil {
		results = []semantic.SearchResult{}
	}

	a.mSearches.Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

// decode unmarshals and validates a request body, replying 400 on failure.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail maps a pipeline error onto an HTTP status via its kind.
func (a *api) fail(w http.ResponseWriter, op string, err error) {
	a.mErrors.Inc()
	a.logger.Error(op+" failed", "err", err, "kind", domain.KindOf(err).String())

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	switch domain.KindOf(err) {
	case domain.KindTransient:
		writeError(w, http.StatusServiceUnavailable, "upstream temporarily unavailable")
	case domain.KindInputTooLarge:
		writeError(w, http.StatusRequestEntityTooLarge, "document too large to index")
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, "collection not initialized")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
