package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/logger"
)

// SearchIndex wraps a Bleve index of catalog books.
//
// All methods are safe for concurrent use. Rebuild takes the write lock.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion changes whenever buildIndexMapping does. An index on disk
// written under another version is discarded and recreated empty; the
// catalog import repopulates it.
const mappingVersion = "1"

const (
	indexDirName    = "search.bleve"
	versionFileName = "search.version"
)

// NewSearchIndex opens the catalog index under opts.DataPath, creating it when
// absent. An index that fails to open or carries a stale mapping version is
// replaced by an empty one.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	s := &SearchIndex{
		path:   filepath.Join(opts.DataPath, indexDirName),
		logger: log,
	}
	versionPath := filepath.Join(opts.DataPath, versionFileName)

	if reason := s.staleReason(versionPath); reason == "" {
		index, err := bleve.Open(s.path)
		if err == nil {
			s.index = index
			log.Info("opened search index", "path", s.path, "documents", s.count())
			return s, nil
		}
		log.Warn("search index unreadable, recreating", "path", s.path, "error", err)
	} else if reason != "missing" {
		log.Info("recreating search index", "reason", reason, "mapping_version", mappingVersion)
	}

	if err := s.create(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		log.Warn("failed to write search version file", "error", err)
	}
	return s, nil
}

// staleReason reports why the on-disk index cannot be reused, or "" when it
// can be opened as is.
func (s *SearchIndex) staleReason(versionPath string) string {
	if _, err := os.Stat(s.path); err != nil {
		return "missing"
	}
	version, err := os.ReadFile(versionPath)
	switch {
	case err != nil:
		return "no version file"
	case string(version) != mappingVersion:
		return "mapping version " + string(version)
	}
	return ""
}

// create replaces whatever lives at s.path with an empty index.
func (s *SearchIndex) create() error {
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("created search index", "path", s.path)
	return nil
}

func (s *SearchIndex) count() uint64 {
	n, _ := s.index.DocCount()
	return n
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook indexes or replaces a single book.
func (s *SearchIndex) IndexBook(b *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(b.Slug, NewBookDocument(b).ToMap())
}

// IndexBooks indexes books in batches of 500.
func (s *SearchIndex) IndexBooks(books []domain.Book) error {
	docs := make([]*BookDocument, len(books))
	for i := range books {
		docs[i] = NewBookDocument(&books[i])
	}
	return s.indexDocuments(docs)
}

func (s *SearchIndex) indexDocuments(docs []*BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[i:end]

		batch := s.index.NewBatch()
		for _, doc := range chunk {
			if err := batch.Index(doc.Slug, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.Slug, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteBook removes a book from the index.
func (s *SearchIndex) DeleteBook(slug string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(slug)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates an empty one. It blocks every
// other operation until it returns.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return s.create()
}
