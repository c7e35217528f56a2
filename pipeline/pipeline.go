// Package pipeline ties extraction, chunking, indexing, retrieval and answer
// synthesis together behind the ingest and ask actions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/answer"
	"github.com/a-h/pdfqa/chunker"
	"github.com/a-h/pdfqa/embedding"
	"github.com/a-h/pdfqa/extract"
	"github.com/a-h/pdfqa/index"
	"github.com/a-h/pdfqa/retriever"
)

type Options struct {
	IndexDir     string
	ChunkSize    int
	ChunkOverlap int
	K            int
	IndexKey     string
	Compress     bool
	// AllowUnsafeDeserialization permits loading an unencrypted index.
	AllowUnsafeDeserialization bool
}

type Pipeline struct {
	log       *slog.Logger
	opts      Options
	extractor *extract.Extractor
	gateway   *embedding.Gateway
	splitter  *chunker.Splitter
	retriever *retriever.Retriever
	synth     *answer.Synthesizer

	// m guards the index directory: Save holds it for writing, loads for reading.
	m       sync.RWMutex
	cacheMu sync.Mutex
	cached  *index.Index
}

func New(log *slog.Logger, opts Options, ex *extract.Extractor, gw *embedding.Gateway, synth *answer.Synthesizer) (*Pipeline, error) {
	splitter, err := chunker.New(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	r, err := retriever.New(gw)
	if err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		opts.K = retriever.DefaultK
	}
	if opts.IndexDir == "" {
		return nil, fmt.Errorf("%w: index directory is required", pdfqa.ErrInvalidArgument)
	}
	return &Pipeline{
		log:       log,
		opts:      opts,
		extractor: ex,
		gateway:   gw,
		splitter:  splitter,
		retriever: r,
		synth:     synth,
	}, nil
}

type IngestResult struct {
	BuildID   string
	Documents []string
	Skipped   []string
	Pages     int
	Chunks    int
}

// Ingest replaces the index with one built from docs. On failure the
// previous index is left untouched.
func (p *Pipeline) Ingest(ctx context.Context, docs []extract.Document, progress func(done, total int)) (r IngestResult, err error) {
	start := time.Now()
	if len(docs) == 0 {
		return r, pdfqa.WithStage(pdfqa.StageExtract, fmt.Errorf("%w: no documents provided", pdfqa.ErrInvalidArgument))
	}
	extracted, err := p.extractor.Extract(ctx, docs)
	if err != nil {
		return r, pdfqa.WithStage(pdfqa.StageExtract, err)
	}
	r.Documents, r.Skipped, r.Pages = extracted.Documents, extracted.Skipped, extracted.Pages

	chunks := p.splitter.Split(extracted.Text)
	r.Chunks = len(chunks)
	p.log.Info("chunked corpus", slog.Int("documents", len(r.Documents)), slog.Int("characters", len([]rune(extracted.Text))), slog.Int("chunks", r.Chunks))

	gw := p.gateway
	if progress != nil {
		gw = gw.WithProgress(progress)
	}
	ix, err := index.Build(ctx, gw, chunks,
		index.WithModel(p.gateway.Model()),
		index.WithChunking(p.opts.ChunkSize, p.opts.ChunkOverlap),
		index.WithDocuments(r.Documents))
	if err != nil {
		return r, pdfqa.WithStage(pdfqa.StageEmbed, err)
	}
	r.BuildID = ix.Manifest().BuildID

	p.m.Lock()
	defer p.m.Unlock()
	if err = index.Save(ix, p.opts.IndexDir, index.SaveOptions{Key: p.opts.IndexKey, Compress: p.opts.Compress}); err != nil {
		return r, pdfqa.WithStage(pdfqa.StagePersist, err)
	}
	p.setCached(ix)
	p.log.Info("index saved", slog.String("dir", p.opts.IndexDir), slog.String("buildId", r.BuildID), slog.Duration("duration", time.Since(start)))
	return r, nil
}

type Result struct {
	Answer  answer.Answer
	Context string
	Sources []index.Hit
}

// Ask answers question from the saved index.
func (p *Pipeline) Ask(ctx context.Context, question string) (r Result, err error) {
	r.Sources, err = p.Retrieve(ctx, question)
	if err != nil {
		return r, err
	}
	r.Context = retriever.Join(r.Sources)
	p.log.Debug("retrieved context", slog.Int("chunks", len(r.Sources)), slog.Int("characters", len(r.Context)))
	r.Answer, err = p.synth.Synthesize(ctx, question, r.Context)
	if err != nil {
		return r, pdfqa.WithStage(pdfqa.StageSynthesize, err)
	}
	return r, nil
}

// Retrieve returns the chunks of the saved index nearest to question,
// without asking the LLM.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]index.Hit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, pdfqa.WithStage(pdfqa.StageRetrieve, fmt.Errorf("%w: question must not be empty", pdfqa.ErrInvalidArgument))
	}
	ix, err := p.load()
	if err != nil {
		return nil, pdfqa.WithStage(pdfqa.StageLoad, err)
	}
	hits, err := p.retriever.RetrieveHits(ctx, question, ix, p.opts.K)
	if err != nil {
		return nil, pdfqa.WithStage(pdfqa.StageRetrieve, err)
	}
	return hits, nil
}

// Status returns the manifest of the saved index.
func (p *Pipeline) Status() (index.Manifest, error) {
	p.m.RLock()
	defer p.m.RUnlock()
	m, err := index.ReadManifest(p.opts.IndexDir)
	if err != nil {
		return m, pdfqa.WithStage(pdfqa.StageLoad, err)
	}
	return m, nil
}

// load returns the saved index, reusing the last one loaded or built if the
// directory still holds the same build.
func (p *Pipeline) load() (*index.Index, error) {
	p.m.RLock()
	defer p.m.RUnlock()
	m, err := index.ReadManifest(p.opts.IndexDir)
	if err != nil {
		return nil, err
	}
	if cached := p.getCached(); cached != nil && cached.Manifest().BuildID == m.BuildID {
		return cached, nil
	}
	ix, err := index.Load(p.opts.IndexDir, index.LoadOptions{
		Key:                        p.opts.IndexKey,
		AllowUnsafeDeserialization: p.opts.AllowUnsafeDeserialization,
		ExpectedModel:              p.gateway.Model(),
		Log:                        p.log,
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("index loaded", slog.String("dir", p.opts.IndexDir), slog.String("buildId", m.BuildID), slog.Int("chunks", ix.Len()))
	p.setCached(ix)
	return ix, nil
}

func (p *Pipeline) getCached() *index.Index {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	return p.cached
}

func (p *Pipeline) setCached(ix *index.Index) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cached = ix
}
