package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ixberis/doxai-indexer/internal/models"
)

func TestModelForStrategy(t *testing.T) {
	tests := []struct {
		strategy models.OCRStrategy
		want     string
	}{
		{models.OCRStrategyFast, "prebuilt-read"},
		{models.OCRStrategyBalanced, "prebuilt-document"},
		{models.OCRStrategyAccurate, "prebuilt-layout"},
	}

	for _, tt := range tests {
		got, err := modelForStrategy(tt.strategy)
		if err != nil {
			t.Fatalf("modelForStrategy(%q): %v", tt.strategy, err)
		}
		if got != tt.want {
			t.Errorf("modelForStrategy(%q) = %q, want %q", tt.strategy, got, tt.want)
		}
	}

	if _, err := modelForStrategy("turbo"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestAnalyzeDocumentSubmitAndPoll(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["urlSource"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Operation-Location", server.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]any{"status": "running"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"content": "page one text\npage two text",
				"pages": []map[string]any{
					{
						"pageNumber": 1,
						"lines":      []map[string]any{{"content": "page one text"}},
						"words":      []map[string]any{{"confidence": 0.9}, {"confidence": 0.7}},
					},
					{
						"pageNumber": 2,
						"lines":      []map[string]any{{"content": "page two text"}},
						"words":      []map[string]any{{"confidence": 1.0}},
					},
				},
				"languages": []map[string]any{
					{"locale": "en", "confidence": 0.99},
					{"locale": "de", "confidence": 0.2},
				},
			},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := NewDocIntelClient(server.URL, "test-key")
	if err != nil {
		t.Fatalf("NewDocIntelClient: %v", err)
	}

	result, err := client.AnalyzeDocument(context.Background(), "https://example.com/doc.pdf", models.OCRStrategyFast)
	if err != nil {
		t.Fatalf("AnalyzeDocument: %v", err)
	}

	if len(result.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(result.Pages))
	}
	if result.Pages[0].Number != 1 || !strings.Contains(result.Pages[0].Text, "page one") {
		t.Errorf("unexpected first page: %+v", result.Pages[0])
	}
	if result.Language != "en" {
		t.Errorf("language = %q, want en", result.Language)
	}
	if result.ModelUsed != "prebuilt-read" {
		t.Errorf("model = %q, want prebuilt-read", result.ModelUsed)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence = %f, want within (0,1]", result.Confidence)
	}
	if polls.Load() < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls.Load())
	}
}

func TestAnalyzeDocumentFailure(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", server.URL+"/operations/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  map[string]any{"code": "InvalidContent", "message": "unreadable document"},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := NewDocIntelClient(server.URL, "test-key")
	if err != nil {
		t.Fatalf("NewDocIntelClient: %v", err)
	}

	_, err = client.AnalyzeDocument(context.Background(), "https://example.com/broken.pdf", models.OCRStrategyAccurate)
	if err == nil {
		t.Fatal("expected error for failed analysis")
	}
	if !strings.Contains(err.Error(), "InvalidContent") {
		t.Errorf("error should carry service code, got %v", err)
	}
}

func TestValidateDimension(t *testing.T) {
	if err := ValidateDimension("text-embedding-3-small", 1536); err != nil {
		t.Errorf("1536 should be allowed for text-embedding-3-small: %v", err)
	}
	if err := ValidateDimension("text-embedding-3-small", 999); err == nil {
		t.Error("999 should be rejected for text-embedding-3-small")
	}
	if err := ValidateDimension("some-custom-model", 123); err != nil {
		t.Errorf("unknown models accept any positive dimension: %v", err)
	}
	if err := ValidateDimension("some-custom-model", 0); err == nil {
		t.Error("zero dimension should be rejected")
	}
}
