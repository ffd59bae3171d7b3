package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ixberis/doxai-indexer/internal/indexer"
	"github.com/ixberis/doxai-indexer/internal/models"
	"github.com/ixberis/doxai-indexer/internal/pipeline"
	"github.com/ixberis/doxai-indexer/internal/provider"
	"github.com/ixberis/doxai-indexer/internal/storage"
)

const uploadBucket = "rag-uploads"

var (
	indexProject     string
	indexUser        string
	indexMime        string
	indexOCR         bool
	indexOCRStrategy string
	indexPages       int
	indexModel       string
	indexDimension   int
	indexWorkers     int
	indexWatch       bool
)

var indexCmd = &cobra.Command{
	Use:   "index <file>...",
	Short: "Index one or more documents",
	Long: `Index documents through the full pipeline: convert, optional OCR,
chunk, embed and integrate. Each file gets its own job and its own
credit reservation.

Examples:
  doxai index --project p1 --user alice notes.md
  doxai index --project p1 --user alice --ocr --ocr-strategy accurate scan.txt
  doxai index --project p1 --user alice --watch report.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexProject, "project", "", "project the documents belong to (required)")
	indexCmd.Flags().StringVar(&indexUser, "user", "", "user whose wallet pays for the jobs (required)")
	indexCmd.Flags().StringVar(&indexMime, "mime", "", "MIME type override (default: inferred from extension)")
	indexCmd.Flags().BoolVar(&indexOCR, "ocr", false, "run OCR on the documents")
	indexCmd.Flags().StringVar(&indexOCRStrategy, "ocr-strategy", "balanced", "OCR strategy: fast, balanced or accurate")
	indexCmd.Flags().IntVar(&indexPages, "pages", 0, "estimated page count for the credit reservation")
	indexCmd.Flags().StringVar(&indexModel, "model", "", "embedding model override")
	indexCmd.Flags().IntVar(&indexDimension, "dimension", 0, "embedding dimension override")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "concurrent jobs (default: from config)")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "watch job progress (single file only)")
	_ = indexCmd.MarkFlagRequired("project")
	_ = indexCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if indexWatch && len(args) > 1 {
		return fmt.Errorf("--watch supports a single file, got %d", len(args))
	}

	strategy := models.OCRStrategy(indexOCRStrategy)
	if indexOCR && !strategy.Valid() {
		return fmt.Errorf("unknown OCR strategy %q (want fast, balanced or accurate)", indexOCRStrategy)
	}

	blobs, err := storage.OpenBlobStore(cfg.CacheDir, logger)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer blobs.Close()

	embedder, err := buildEmbedder(ctx)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	var ocrClient provider.OCRClient
	if indexOCR {
		ocrClient, err = provider.NewDocIntelClient(cfg.DocIntelEndpoint, cfg.DocIntelAPIKey)
		if err != nil {
			return fmt.Errorf("init OCR client: %w", err)
		}
	}

	orch, err := pipeline.New(pipeline.Config{
		Jobs:       dbClient,
		Events:     dbClient,
		Chunks:     dbClient,
		Embeddings: dbClient,
		Ledger:     ledgerService(),
		Store:      blobs,
		OCR:        ocrClient,
		Embedder:   embedder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	workers := indexWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}
	runner, err := indexer.NewRunner(orch,
		indexer.WithPoolSize(workers),
		indexer.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}
	defer runner.Release()

	fileIDs := make(map[string]string, len(args))
	for _, path := range args {
		req, err := uploadFile(ctx, blobs, path)
		if err != nil {
			return err
		}
		fileIDs[req.FileID] = path
		if err := runner.Submit(ctx, req); err != nil {
			return fmt.Errorf("submit %s: %w", path, err)
		}
	}

	var watchErr error
	if indexWatch {
		// A single submission is in flight; find its job row and
		// follow it while the runner works in the background.
		for fileID := range fileIDs {
			watchErr = watchNewestJobForFile(ctx, fileID)
		}
	}

	results := runner.Wait()
	if watchErr != nil {
		return watchErr
	}
	return printIndexResults(results, fileIDs)
}

// uploadFile copies a local file into the blob store and builds the
// job request for it.
func uploadFile(ctx context.Context, blobs storage.Store, path string) (pipeline.JobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.JobRequest{}, fmt.Errorf("read %s: %w", path, err)
	}

	mime := indexMime
	if mime == "" {
		mime = mimeForPath(path)
	}

	fileID := uuid.NewString()
	uri := storage.JoinURI(uploadBucket, fileID, filepath.Base(path))
	if _, err := blobs.Write(ctx, uri, data, mime); err != nil {
		return pipeline.JobRequest{}, fmt.Errorf("store %s: %w", path, err)
	}

	req := pipeline.JobRequest{
		ProjectID:      indexProject,
		FileID:         fileID,
		UserID:         indexUser,
		MimeType:       mime,
		SourceURI:      uri,
		NeedsOCR:       indexOCR,
		EstimatedPages: indexPages,
		Chunking: models.ChunkingParams{
			MaxTokens: cfg.ChunkMaxTokens,
			Overlap:   cfg.ChunkOverlap,
		},
	}
	if indexOCR {
		req.OCRStrategy = models.OCRStrategy(indexOCRStrategy)
	}
	return req, nil
}

func buildEmbedder(ctx context.Context) (provider.Embedder, error) {
	model := cfg.EmbeddingModel
	if indexModel != "" {
		model = indexModel
	}
	dim := cfg.EmbedDimension
	if indexDimension > 0 {
		dim = indexDimension
	}

	return provider.NewEmbedder(ctx, provider.EmbedderConfig{
		Provider:      provider.ProviderType(cfg.EmbedProvider),
		Model:         model,
		Dimension:     dim,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OllamaHost:    cfg.OllamaHost,
		BedrockRegion: cfg.BedrockRegion,
	})
}

// watchNewestJobForFile waits for the job row created for fileID to
// appear, then follows its progress until the job reaches a terminal
// status.
func watchNewestJobForFile(ctx context.Context, fileID string) error {
	deadline := time.Now().Add(10 * time.Second)
	for {
		jobs, err := dbClient.ListJobsByFile(ctx, fileID)
		if err != nil {
			return fmt.Errorf("find job for file %s: %w", fileID, err)
		}
		if len(jobs) > 0 {
			return watchJob(ctx, models.MustRecordIDString(jobs[0].ID))
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no job appeared for file %s", fileID)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func printIndexResults(results []indexer.Result, fileIDs map[string]string) error {
	sort.Slice(results, func(i, j int) bool {
		return fileIDs[results[i].Request.FileID] < fileIDs[results[j].Request.FileID]
	})

	var failed int
	for _, res := range results {
		path := fileIDs[res.Request.FileID]
		switch {
		case res.Err != nil:
			failed++
			fmt.Printf("✗ %s: %v\n", path, res.Err)
		case res.Summary.JobStatus != models.JobStatusCompleted:
			failed++
			fmt.Printf("✗ %s: job %s %s after %s\n",
				path, res.Summary.JobID, res.Summary.JobStatus, phaseList(res.Summary.PhasesDone))
		default:
			fmt.Printf("✓ %s: job %s, %d chunks, %d embeddings, %d credits\n",
				path, res.Summary.JobID, res.Summary.TotalChunks,
				res.Summary.TotalEmbeddings, res.Summary.CreditsUsed)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func phaseList(phases []models.Phase) string {
	if len(phases) == 0 {
		return "no phases"
	}
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

// mimeForPath infers a MIME type from the file extension. Unknown
// extensions fall back to plain text so small text files index without
// an explicit --mime.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	default:
		return "text/plain"
	}
}
