package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ixberis/doxai-indexer/internal/models"
)

const (
	docIntelAPIVersion = "2024-02-29-preview"

	// pollInterval paces the analyze status polling loop.
	pollInterval = 2 * time.Second
)

// OCRPage is the recognized text of one document page.
type OCRPage struct {
	Number     int     `json:"number"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCRResult is the outcome of analyzing one document.
type OCRResult struct {
	Text       string
	Pages      []OCRPage
	Confidence float64
	Language   string
	ModelUsed  string
}

// OCRClient analyzes scanned documents and returns recognized text.
type OCRClient interface {
	AnalyzeDocument(ctx context.Context, fileURI string, strategy models.OCRStrategy) (*OCRResult, error)
}

// DocIntelClient implements OCRClient against an Azure Document
// Intelligence endpoint.
type DocIntelClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	retry    RetryPolicy
}

var _ OCRClient = (*DocIntelClient)(nil)

// NewDocIntelClient creates an OCR client for the given endpoint.
func NewDocIntelClient(endpoint, apiKey string) (*DocIntelClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("OCR endpoint required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OCR API key required")
	}

	return &DocIntelClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
		retry:    DefaultRetryPolicy(),
	}, nil
}

// modelForStrategy maps a recognition strategy to a service model.
func modelForStrategy(strategy models.OCRStrategy) (string, error) {
	switch strategy {
	case models.OCRStrategyFast:
		return "prebuilt-read", nil
	case models.OCRStrategyBalanced:
		return "prebuilt-document", nil
	case models.OCRStrategyAccurate:
		return "prebuilt-layout", nil
	default:
		return "", fmt.Errorf("unknown OCR strategy: %s", strategy)
	}
}

// analyzeResponse is the service's poll response.
type analyzeResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
		Pages   []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
			Words []struct {
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"pages"`
		Languages []struct {
			Locale     string  `json:"locale"`
			Confidence float64 `json:"confidence"`
		} `json:"languages"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeDocument submits the document for recognition and polls
// until the service finishes.
func (c *DocIntelClient) AnalyzeDocument(ctx context.Context, fileURI string, strategy models.OCRStrategy) (*OCRResult, error) {
	model, err := modelForStrategy(strategy)
	if err != nil {
		return nil, err
	}

	opLocation, err := c.submit(ctx, model, fileURI)
	if err != nil {
		return nil, fmt.Errorf("submit document: %w", err)
	}

	resp, err := c.poll(ctx, opLocation)
	if err != nil {
		return nil, fmt.Errorf("poll analysis: %w", err)
	}

	return buildOCRResult(resp, model), nil
}

// submit starts an analyze operation and returns its poll URL.
func (c *DocIntelClient) submit(ctx context.Context, model, fileURI string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.endpoint, model, docIntelAPIVersion)

	body, err := json.Marshal(map[string]string{"urlSource": fileURI})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var opLocation string
	err = withRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			raw, _ := io.ReadAll(resp.Body)
			return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		}

		opLocation = resp.Header.Get("Operation-Location")
		if opLocation == "" {
			return fmt.Errorf("missing Operation-Location header")
		}
		return nil
	})
	return opLocation, err
}

// poll fetches operation status until it reaches a terminal state.
func (c *DocIntelClient) poll(ctx context.Context, opLocation string) (*analyzeResponse, error) {
	for {
		var result analyzeResponse
		err := withRetry(ctx, c.retry, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLocation, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				raw, _ := io.ReadAll(resp.Body)
				return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
			}
			return json.NewDecoder(resp.Body).Decode(&result)
		})
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("analysis failed: %s: %s", result.Error.Code, result.Error.Message)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// buildOCRResult flattens the service response into per-page text with
// averaged word confidence.
func buildOCRResult(resp *analyzeResponse, model string) *OCRResult {
	result := &OCRResult{
		Text:      resp.AnalyzeResult.Content,
		ModelUsed: model,
	}

	var confSum float64
	var confCount int
	for _, p := range resp.AnalyzeResult.Pages {
		lines := make([]string, len(p.Lines))
		for i, l := range p.Lines {
			lines[i] = l.Content
		}

		var pageConf float64
		if len(p.Words) > 0 {
			for _, w := range p.Words {
				pageConf += w.Confidence
			}
			pageConf /= float64(len(p.Words))
			confSum += pageConf
			confCount++
		}

		result.Pages = append(result.Pages, OCRPage{
			Number:     p.PageNumber,
			Text:       strings.Join(lines, "\n"),
			Confidence: pageConf,
		})
	}
	if confCount > 0 {
		result.Confidence = confSum / float64(confCount)
	}

	if len(resp.AnalyzeResult.Languages) > 0 {
		best := resp.AnalyzeResult.Languages[0]
		for _, l := range resp.AnalyzeResult.Languages[1:] {
			if l.Confidence > best.Confidence {
				best = l
			}
		}
		result.Language = best.Locale
	}

	return result
}
