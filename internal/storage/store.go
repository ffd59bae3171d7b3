// Package storage provides blob storage for pipeline artifacts such as
// converted text and OCR output.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Store reads and writes artifact blobs addressed by bucket-scoped
// URIs of the form "bucket/path/to/object".
type Store interface {
	// Read returns the object's bytes. Returns ErrObjectNotFound if
	// the object does not exist.
	Read(ctx context.Context, uri string) ([]byte, error)

	// Write stores data at uri and returns the canonical URI.
	Write(ctx context.Context, uri string, data []byte, contentType string) (string, error)
}

// SplitURI splits "bucket/path" into its bucket and path parts.
func SplitURI(uri string) (bucket, path string, err error) {
	bucket, path, ok := strings.Cut(uri, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", fmt.Errorf("malformed storage uri %q", uri)
	}
	return bucket, path, nil
}

// JoinURI builds a bucket-scoped URI.
func JoinURI(bucket string, parts ...string) string {
	return bucket + "/" + strings.Join(parts, "/")
}
