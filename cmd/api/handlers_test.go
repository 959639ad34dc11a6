package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/engine/ingest"
	"github.com/rentora/rentora-engine/engine/rag"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/fn"
	"github.com/rentora/rentora-engine/pkg/metrics"
)

type fakeEmbedder struct {
	dims int
	err  error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dims), nil
}

type fakeIndex struct{}

func (fakeIndex) EnsureCollection(context.Context, int) error           { return nil }
func (fakeIndex) DeleteByLease(context.Context, int64) error            { return nil }
func (fakeIndex) Upsert(context.Context, []semantic.VectorRecord) error { return nil }

type fakeSearcher struct {
	results []semantic.SearchResult
}

func (f *fakeSearcher) Search(context.Context, []float32, int, map[string]string) ([]semantic.SearchResult, error) {
	return f.results, nil
}

type fakeGenerator struct{ reply string }

func (f *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	return f.reply, nil
}

func testAPI(emb *fakeEmbedder, search *fakeSearcher, gen *fakeGenerator) *api {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := ingest.DefaultOptions()
	opts.Dims = emb.dims
	opts.Retry = fn.RetryOpts{MaxAttempts: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	pipeline := ingest.NewPipeline(emb, fakeIndex{}, opts, logger)
	ragSvc := rag.New(emb, search, gen, nil, rag.Options{}, logger)
	return newAPI(pipeline, ragSvc, metrics.New(), logger)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{})
	rec := httptest.NewRecorder()
	a.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{})

	rec := postJSON(t, a.handleIngest, `{"lease_id":7,"user_id":"user-1","text":"monthly rent is 1200","contract_no":"C-100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("body: %v", body)
	}
	if body["chunks_stored"].(float64) != 1 {
		t.Errorf("chunks_stored: %v", body["chunks_stored"])
	}
}

func TestHandleIngest_BadBody(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{})

	if rec := postJSON(t, a.handleIngest, `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status: %d", rec.Code)
	}
	if rec := postJSON(t, a.handleIngest, `{"lease_id":0,"user_id":"u"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero lease_id status: %d", rec.Code)
	}
	if rec := postJSON(t, a.handleIngest, `{"lease_id":7}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status: %d", rec.Code)
	}
}

func TestHandleIngest_UpstreamDown(t *testing.T) {
	emb := &fakeEmbedder{err: domain.Ef(domain.KindTransient, "embed", "unavailable")}
	a := testAPI(emb, &fakeSearcher{}, &fakeGenerator{})

	rec := postJSON(t, a.handleIngest, `{"lease_id":7,"user_id":"user-1","text":"some text"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: %d, want 503", rec.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	search := &fakeSearcher{results: []semantic.SearchResult{
		{ContractNo: "C-100", ChunkText: "rent is 1200", Score: 0.9},
	}}
	a := testAPI(&fakeEmbedder{dims: 4}, search, &fakeGenerator{reply: "The rent is 1200."})

	rec := postJSON(t, a.handleQuery, `{"question":"what is the rent?","user_id":"user-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["answer"] != "The rent is 1200." {
		t.Errorf("answer: %v", body["answer"])
	}
	if len(body["sources"].([]any)) != 1 {
		t.Errorf("sources: %v", body["sources"])
	}
}

func TestHandleQuery_NoMatches(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{reply: "unused"})

	rec := postJSON(t, a.handleQuery, `{"question":"anything?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["answer"] != rag.NotFoundAnswer {
		t.Errorf("answer: %v", body["answer"])
	}
}

func TestHandleQuery_MissingQuestion(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{})
	if rec := postJSON(t, a.handleQuery, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestHandleSearch_EmptyIsNotNull(t *testing.T) {
	a := testAPI(&fakeEmbedder{dims: 4}, &fakeSearcher{}, &fakeGenerator{})

	rec := postJSON(t, a.handleSearch, `{"question":"anything?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `"results":null`) {
		t.Error("empty results serialized as null")
	}
	body := decodeBody(t, rec)
	if len(body["results"].([]any)) != 0 {
		t.Errorf("results: %v", body["results"])
	}
}
