// Package index stores chunk embeddings in a chromem-go collection and
// persists them to a single local directory.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/a-h/pdfqa"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

const collectionName = "chunks"

// Embedder creates one vector per text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is an in-memory similarity index over chunk texts.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	manifest   Manifest
}

// Hit is a chunk returned from a search.
type Hit struct {
	Text     string  `json:"text"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}

type BuildOption func(m *Manifest)

// WithModel records the embedding model that produced the vectors.
func WithModel(name string) BuildOption {
	return func(m *Manifest) {
		m.EmbeddingModel = name
	}
}

// WithChunking records how the corpus was chunked.
func WithChunking(size, overlap int) BuildOption {
	return func(m *Manifest) {
		m.ChunkSize = size
		m.ChunkOverlap = overlap
	}
}

// WithDocuments records the names of the source documents.
func WithDocuments(names []string) BuildOption {
	return func(m *Manifest) {
		m.Documents = names
	}
}

// Build embeds every chunk and returns a new index. Nothing is kept if any
// chunk fails to embed.
func Build(ctx context.Context, e Embedder, chunks []string, opts ...BuildOption) (*Index, error) {
	m := Manifest{
		FormatVersion: FormatVersion,
		BuildID:       uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Count:         len(chunks),
	}
	for _, opt := range opts {
		opt(&m)
	}
	var vectors [][]float32
	if len(chunks) > 0 {
		var err error
		vectors, err = e.EmbedDocuments(ctx, chunks)
		if err != nil {
			if errors.Is(err, pdfqa.ErrEmbeddingService) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", pdfqa.ErrEmbeddingService, err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", pdfqa.ErrEmbeddingService, len(chunks), len(vectors))
		}
		m.Dimension = len(vectors[0])
	}
	docs := make([]chromem.Document, len(chunks))
	for i, v := range vectors {
		if len(v) != m.Dimension || m.Dimension == 0 {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", pdfqa.ErrEmbeddingService, i, len(v), m.Dimension)
		}
		if isZero(v) {
			return nil, fmt.Errorf("%w: vector %d is zero", pdfqa.ErrEmbeddingService, i)
		}
		id := strconv.Itoa(i)
		docs[i] = chromem.Document{
			ID:        id,
			Content:   chunks[i],
			Embedding: v,
			Metadata:  map[string]string{"position": id},
		}
	}
	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, precomputed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if len(docs) > 0 {
		if err = c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}
	return &Index{db: db, collection: c, manifest: m}, nil
}

// precomputed is the collection's embedding function. All vectors are
// supplied by Build and Search, so it is never expected to run.
func precomputed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("index: embeddings must be computed before they are added")
}

func (ix *Index) Len() int {
	return ix.collection.Count()
}

func (ix *Index) Manifest() Manifest {
	return ix.manifest
}

// Search returns up to k chunks nearest to query, most similar first. Ties
// are broken by chunk position. A query of a different dimension means the
// index was built by an incompatible embedding model, and fails with
// ErrCorruptIndex.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pdfqa.ErrInvalidArgument, k)
	}
	n := ix.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if len(query) != ix.manifest.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", pdfqa.ErrCorruptIndex, len(query), ix.manifest.Dimension)
	}
	if isZero(query) {
		return nil, fmt.Errorf("%w: query vector is zero", pdfqa.ErrInvalidArgument)
	}
	results, err := ix.collection.QueryEmbedding(ctx, query, min(k, n), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid chunk id %q", pdfqa.ErrCorruptIndex, r.ID)
		}
		hits[i] = Hit{Text: r.Content, Position: pos, Score: r.Similarity}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return hits, nil
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
