package pipeline

import (
	"context"
	"fmt"

	"github.com/ixberis/doxai-indexer/internal/models"
	"github.com/ixberis/doxai-indexer/internal/storage"
)

// pageCacheBucket holds per-job OCR output.
const pageCacheBucket = "rag-cache-pages"

// OCRPhaseResult is the outcome of the ocr phase.
type OCRPhaseResult struct {
	ResultURI  string
	TotalPages int
	Lang       string
	Confidence float64
}

// runOCR sends the source document to the recognition provider and
// caches the recognized text. Confidence and language are recorded for
// observability only.
func (o *Orchestrator) runOCR(ctx context.Context, jobID, sourceURI string, strategy models.OCRStrategy) (*OCRPhaseResult, error) {
	res, err := o.ocr.AnalyzeDocument(ctx, sourceURI, strategy)
	if err != nil {
		return nil, fmt.Errorf("analyzing document: %w", err)
	}

	resultURI := storage.JoinURI(pageCacheBucket, jobID, "ocr_result.txt")
	uri, err := o.store.Write(ctx, resultURI, []byte(res.Text), "text/plain; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("writing ocr text: %w", err)
	}

	return &OCRPhaseResult{
		ResultURI:  uri,
		TotalPages: len(res.Pages),
		Lang:       res.Language,
		Confidence: res.Confidence,
	}, nil
}
