// Package extract turns uploaded documents into corpus text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/a-h/pdfqa"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Document is the raw content of one uploaded file.
type Document struct {
	Name string
	Data []byte
}

type Result struct {
	// Text of every page of every readable document, in upload order then
	// page order, with no separator between pages.
	Text string
	// Documents that contributed text.
	Documents []string
	// Skipped documents, only populated when unreadable documents are skipped.
	Skipped []string
	Pages   int
}

type loadFunc func(ctx context.Context, d Document) ([]schema.Document, error)

type Extractor struct {
	log            *slog.Logger
	skipUnreadable bool
	loaders        map[string]loadFunc
}

type Option func(*Extractor)

// WithSkipUnreadable skips documents that cannot be parsed instead of failing
// the whole batch.
func WithSkipUnreadable(skip bool) Option {
	return func(e *Extractor) {
		e.skipUnreadable = skip
	}
}

func New(log *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		log: log,
		loaders: map[string]loadFunc{
			"pdf":  loadPDF,
			"text": loadText,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, docs []Document) (r Result, err error) {
	var sb strings.Builder
	var skipped []error
	for _, d := range docs {
		if err = ctx.Err(); err != nil {
			return r, err
		}
		pages, err := e.load(ctx, d)
		if err != nil {
			err = fmt.Errorf("%w: %q: %w", pdfqa.ErrExtraction, d.Name, err)
			if !e.skipUnreadable {
				return r, err
			}
			e.log.Warn("skipping unreadable document", slog.String("name", d.Name), slog.Any("error", err))
			r.Skipped = append(r.Skipped, d.Name)
			skipped = append(skipped, err)
			continue
		}
		var n int
		for _, p := range pages {
			text := normalize(p.PageContent)
			n += len(text)
			sb.WriteString(text)
		}
		if n == 0 {
			e.log.Warn("document contains no extractable text", slog.String("name", d.Name), slog.Int("pages", len(pages)))
		}
		e.log.Debug("extracted document", slog.String("name", d.Name), slog.Int("pages", len(pages)), slog.Int("bytes", n))
		r.Documents = append(r.Documents, d.Name)
		r.Pages += len(pages)
	}
	r.Text = sb.String()
	if len(skipped) > 0 {
		e.log.Info("extraction finished with skipped documents", slog.Any("errors", errors.Join(skipped...)))
	}
	return r, nil
}

func (e *Extractor) load(ctx context.Context, d Document) (pages []schema.Document, err error) {
	kind, err := detect(d)
	if err != nil {
		return nil, err
	}
	// The PDF parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to parse %s: %v", kind, r)
		}
	}()
	return e.loaders[kind](ctx, d)
}

var pdfMagic = []byte("%PDF-")

func detect(d Document) (kind string, err error) {
	if bytes.HasPrefix(d.Data, pdfMagic) {
		return "pdf", nil
	}
	switch strings.ToLower(filepath.Ext(d.Name)) {
	case ".txt", ".text", ".md":
		return "text", nil
	case ".pdf":
		return "", errors.New("file has a .pdf extension but is not a PDF")
	}
	return "", fmt.Errorf("unsupported document type %q", filepath.Ext(d.Name))
}

func loadPDF(ctx context.Context, d Document) ([]schema.Document, error) {
	pdf := documentloaders.NewPDF(bytes.NewReader(d.Data), int64(len(d.Data)))
	docs, err := pdf.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}
	return docs, nil
}

func loadText(ctx context.Context, d Document) ([]schema.Document, error) {
	docs, err := documentloaders.NewText(bytes.NewReader(d.Data)).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load text: %w", err)
	}
	return docs, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalize(s string) string {
	return lineEndings.Replace(strings.ToValidUTF8(s, ""))
}
