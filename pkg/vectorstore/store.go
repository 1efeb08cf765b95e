// Package vectorstore adapts an embedded chromem-go collection into the
// vector store role: similarity search over poem chunks, plus an exact
// (temple, number) lookup kept as an in-memory index alongside it.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// EmbeddingFunc embeds text into a vector. Swappable for tests.
type EmbeddingFunc = chromem.EmbeddingFunc

// Store is the persistent similarity index over poem chunks.
type Store struct {
	collection *chromem.Collection

	mu      sync.RWMutex
	byPoem  map[string][]*models.PoemChunk // key: temple|number
}

// Open opens (creating if absent) the persistent chromem-go collection at
// cfg.PersistPath. The exact-lookup index is populated by Ingest calls;
// chromem-go's on-disk format is transparent to it on restart (queries
// still hit the full, persisted collection), but this core's own
// (temple, number) index is rebuilt only from chunks Ingest sees in the
// current process, consistent with ingestion being an out-of-band
// concern this core doesn't own.
func Open(ctx context.Context, cfg *config.VectorStoreConfig, embed EmbeddingFunc) (*Store, error) {
	db, err := chromem.NewPersistentDB(cfg.PersistPath, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store at %s: %w", cfg.PersistPath, err)
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", cfg.Collection, err)
	}

	return &Store{collection: collection, byPoem: make(map[string][]*models.PoemChunk)}, nil
}

func poemKey(temple string, number int) string {
	return temple + "|" + strconv.Itoa(number)
}

func (s *Store) index(chunk *models.PoemChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := poemKey(chunk.Temple, chunk.Number)
	s.byPoem[key] = append(s.byPoem[key], chunk)
}

// Ingest adds or replaces a poem chunk in the collection and the exact
// lookup index. Ingestion/corpus-population tooling itself is out of
// scope; this is the narrow write path the core needs to exist for tests
// and for a deployer's own out-of-band seeding script to call.
func (s *Store) Ingest(ctx context.Context, chunk *models.PoemChunk) error {
	doc := chromem.Document{
		ID:      chunk.ID,
		Content: chunk.Body,
		Metadata: map[string]string{
			"temple":        chunk.Temple,
			"number":        strconv.Itoa(chunk.Number),
			"fortune_level": chunk.FortuneLevel,
			"title":         chunk.Title,
			"language":      chunk.Language,
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return apperr.New(apperr.CategoryDependencyUnavailable, fmt.Errorf("ingest chunk %s: %w", chunk.ID, err))
	}
	s.index(chunk)
	return nil
}

// GetPoem returns every chunk for (temple, number), or apperr.ErrNotFound
// if no chunk has been ingested for that pair.
func (s *Store) GetPoem(temple string, number int) ([]*models.PoemChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.byPoem[poemKey(temple, number)]
	if !ok || len(chunks) == 0 {
		return nil, apperr.New(apperr.CategoryNotFound, fmt.Errorf("%w: poem %s/%d", apperr.ErrNotFound, temple, number))
	}
	return chunks, nil
}

// HasPoem reports whether (temple, number) resolves to at least one chunk,
// for submission-time validation.
func (s *Store) HasPoem(temple string, number int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.byPoem[poemKey(temple, number)]
	return ok && len(chunks) > 0
}

// Stats summarizes the exact-lookup index, for health reporting.
type Stats struct {
	TotalChunks   int
	UniqueTemples int
	UniquePoems   int
}

// Stats reports the size of the ingested index. It reflects only chunks
// Ingest has seen in the current process (see Open), not the full
// persisted chromem-go collection.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	temples := make(map[string]struct{})
	total := 0
	for key, chunks := range s.byPoem {
		total += len(chunks)
		if temple, _, ok := strings.Cut(key, "|"); ok {
			temples[temple] = struct{}{}
		}
	}
	return Stats{TotalChunks: total, UniqueTemples: len(temples), UniquePoems: len(s.byPoem)}
}

// Result is one similarity-search hit, with its cosine distance to the
// query (0 = identical, larger = less similar).
type Result struct {
	Chunk    *models.PoemChunk
	Distance float32
}

// Search returns the topK most similar chunks within (temple, number) to
// query, filtered to language when non-empty.
func (s *Store) Search(ctx context.Context, temple string, number int, query, language string, topK int) ([]Result, error) {
	where := map[string]string{
		"temple": temple,
		"number": strconv.Itoa(number),
	}
	if language != "" {
		where["language"] = language
	}

	// chromem-go rejects nResults larger than the collection, so ask for
	// at most as many documents as it holds.
	if n := s.collection.Count(); topK > n {
		topK = n
	}
	if topK <= 0 {
		return []Result{}, nil
	}

	docs, err := s.collection.Query(ctx, query, topK, where, nil)
	if err != nil {
		return nil, apperr.New(apperr.CategoryDependencyUnavailable, fmt.Errorf("vector search: %w", err))
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		results = append(results, Result{
			Chunk:    chunkFromDocument(doc.Document),
			Distance: 1 - doc.Similarity,
		})
	}
	return results, nil
}

func chunkFromDocument(doc chromem.Document) *models.PoemChunk {
	number, _ := strconv.Atoi(doc.Metadata["number"])
	return &models.PoemChunk{
		ID:           doc.ID,
		Temple:       doc.Metadata["temple"],
		Number:       number,
		FortuneLevel: doc.Metadata["fortune_level"],
		Title:        doc.Metadata["title"],
		Body:         doc.Content,
		Language:     doc.Metadata["language"],
	}
}
