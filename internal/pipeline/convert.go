package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/ixberis/doxai-indexer/internal/storage"
)

// jobCacheBucket holds per-job converted text artifacts.
const jobCacheBucket = "rag-cache-jobs"

// ConvertResult is the outcome of the convert phase.
type ConvertResult struct {
	ResultURI string
	ByteSize  int
	Checksum  string
}

// runConvert extracts plain text from the source document and writes it
// to the job cache. Unsupported mime types fail the job.
func (o *Orchestrator) runConvert(ctx context.Context, jobID, sourceURI, mimeType string) (*ConvertResult, error) {
	raw, err := o.store.Read(ctx, sourceURI)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", sourceURI, err)
	}

	text, err := extractText(raw, mimeType)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(text))
	resultURI := storage.JoinURI(jobCacheBucket, jobID, "converted.txt")
	uri, err := o.store.Write(ctx, resultURI, []byte(text), "text/plain; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("writing converted text: %w", err)
	}

	return &ConvertResult{
		ResultURI: uri,
		ByteSize:  len(text),
		Checksum:  hex.EncodeToString(sum[:]),
	}, nil
}

// extractText decodes the document bytes for a supported mime type.
// Input that is not valid utf-8 is reinterpreted as latin-1.
func extractText(raw []byte, mimeType string) (string, error) {
	mime := mimeType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))

	switch mime {
	case "text/plain", "text/markdown":
		return decodeText(raw), nil
	case "text/html":
		return htmlToText(decodeText(raw)), nil
	}
	return "", fmt.Errorf("unsupported mime type %q", mimeType)
}

func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// ISO 8859-1 maps every byte; decoding cannot fail.
		return string(raw)
	}
	return string(decoded)
}

// htmlToText renders the text content of an HTML document, dropping
// markup, scripts and styles.
func htmlToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)

	return strings.TrimSpace(sb.String())
}
