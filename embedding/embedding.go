// Package embedding wraps an embedding provider with batching, rate limiting,
// retries and per-request timeouts.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/pdfqa"
	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"
)

var _ embeddings.Embedder = (*Gateway)(nil)

type Gateway struct {
	log        *slog.Logger
	embedder   embeddings.Embedder
	model      string
	batchSize  int
	limiter    *rate.Limiter
	retries    int
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	progress   func(done, total int)
}

type Option func(*Gateway)

// WithModel records the embedding model name so that indexes can be checked
// against it.
func WithModel(name string) Option {
	return func(g *Gateway) {
		g.model = name
	}
}

func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithRateLimit limits requests to the provider per second. Zero removes the limit.
func WithRateLimit(perSecond float64) Option {
	return func(g *Gateway) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithRetries(n int) Option {
	return func(g *Gateway) {
		g.retries = n
	}
}

// WithTimeout bounds each request to the provider.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithBackOff sets the retry schedule.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(g *Gateway) {
		g.newBackOff = f
	}
}

func New(log *slog.Logger, e embeddings.Embedder, opts ...Option) *Gateway {
	g := &Gateway{
		log:       log,
		embedder:  e,
		batchSize: 100,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		retries:   3,
		timeout:   60 * time.Second,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the embedding model name, if known.
func (g *Gateway) Model() string {
	return g.model
}

// WithProgress returns a copy of the gateway that reports how many texts
// have been embedded after each batch of EmbedDocuments.
func (g *Gateway) WithProgress(f func(done, total int)) *Gateway {
	cp := *g
	cp.progress = f
	return &cp
}

// EmbedDocuments returns one vector per text, in order. Any failure fails
// the whole call.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	vectors = make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		batch, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for i, v := range batch {
			if len(vectors) > 0 && len(v) != len(vectors[0]) {
				return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", pdfqa.ErrEmbeddingService, start+i, len(v), len(vectors[0]))
			}
			vectors = append(vectors, v)
		}
		g.log.Debug("embedded batch", slog.Int("done", end), slog.Int("total", len(texts)))
		if g.progress != nil {
			g.progress(end, len(texts))
		}
	}
	return vectors, nil
}

func (g *Gateway) EmbedQuery(ctx context.Context, text string) (v []float32, err error) {
	err = g.call(ctx, func(ctx context.Context) (err error) {
		v, err = g.embedder.EmbedQuery(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", pdfqa.ErrEmbeddingService)
	}
	return v, nil
}

func (g *Gateway) embedBatch(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	err = g.call(ctx, func(ctx context.Context) (err error) {
		vectors, err = g.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", pdfqa.ErrEmbeddingService, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for text %d", pdfqa.ErrEmbeddingService, i)
		}
	}
	return vectors, nil
}

// call waits for the rate limiter, then runs f with a timeout, retrying on
// failure until the retry budget or the parent context is exhausted.
func (g *Gateway) call(ctx context.Context, f func(ctx context.Context) error) error {
	op := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		rctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		err := f(rctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		g.log.Warn("embedding request failed, retrying", slog.Any("error", err), slog.Duration("wait", wait))
	}
	b := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(max(g.retries, 0))), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if errors.Is(err, pdfqa.ErrEmbeddingService) {
			return err
		}
		return fmt.Errorf("%w: %w", pdfqa.ErrEmbeddingService, err)
	}
	return nil
}
