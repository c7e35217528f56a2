// Package retriever finds the chunks most relevant to a question and joins
// them into prompt context.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/index"
)

const DefaultK = 10

// QueryEmbedder embeds a question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	embedder QueryEmbedder
}

func New(embedder QueryEmbedder) (*Retriever, error) {
	if embedder == nil {
		return nil, errors.New("retriever: embedder must not be nil")
	}
	return &Retriever{embedder: embedder}, nil
}

// Retrieve returns the texts of the k chunks nearest to question, joined by
// newlines in nearest-first order. An empty index yields an empty context.
func (r *Retriever) Retrieve(ctx context.Context, question string, ix *index.Index, k int) (string, error) {
	hits, err := r.RetrieveHits(ctx, question, ix, k)
	if err != nil {
		return "", err
	}
	return Join(hits), nil
}

// RetrieveHits is Retrieve without joining the results.
func (r *Retriever) RetrieveHits(ctx context.Context, question string, ix *index.Index, k int) ([]index.Hit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", pdfqa.ErrInvalidArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pdfqa.ErrInvalidArgument, k)
	}
	if ix == nil {
		return nil, pdfqa.ErrIndexNotFound
	}
	if ix.Len() == 0 {
		return nil, nil
	}
	q, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		if errors.Is(err, pdfqa.ErrEmbeddingService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to embed question: %w", pdfqa.ErrEmbeddingService, err)
	}
	return ix.Search(ctx, q, k)
}

// Join concatenates hit texts with newlines.
func Join(hits []index.Hit) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return strings.Join(texts, "\n")
}
