package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Key prefixes for blob data and metadata.
const (
	blobPrefix = "blob"
	metaPrefix = "meta"
)

// BlobStore is a Store backed by an embedded BadgerDB. It serves as
// the local artifact cache for converted text and OCR results.
type BlobStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ Store = (*BlobStore)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBlobStore opens a BadgerDB-backed blob store at the given path.
// Creates the directory if it doesn't exist. An empty path opens an
// in-memory store.
func OpenBlobStore(filePath string, log *slog.Logger) (*BlobStore, error) {
	if log == nil {
		log = slog.Default()
	}

	var opts badger.Options
	if filePath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: log}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	return &BlobStore{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

// Read returns the blob stored at uri.
func (s *BlobStore) Read(ctx context.Context, uri string) ([]byte, error) {
	if _, _, err := SplitURI(uri); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(uri))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

// Write stores data at uri along with its content type.
func (s *BlobStore) Write(ctx context.Context, uri string, data []byte, contentType string) (string, error) {
	if _, _, err := SplitURI(uri); err != nil {
		return "", err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blobKey(uri), data); err != nil {
			return err
		}
		return txn.Set(metaKey(uri), []byte(contentType))
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", uri, err)
	}

	s.logger.Debug("stored blob", "uri", uri, "bytes", len(data), "content_type", contentType)
	return uri, nil
}

// ContentType returns the content type recorded for uri, or empty when
// none was stored.
func (s *BlobStore) ContentType(ctx context.Context, uri string) (string, error) {
	var ct []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(uri))
		if err != nil {
			return err
		}
		ct, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("content type %s: %w", uri, err)
	}
	return string(ct), nil
}

func blobKey(uri string) []byte {
	return []byte(blobPrefix + ":" + uri)
}

func metaKey(uri string) []byte {
	return []byte(metaPrefix + ":" + uri)
}
