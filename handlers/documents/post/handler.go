package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/a-h/pdfqa/extract"
	"github.com/a-h/pdfqa/handlers"
	"github.com/a-h/pdfqa/models"
	"github.com/a-h/pdfqa/pipeline"
	"github.com/a-h/respond"
)

type Ingester interface {
	Ingest(ctx context.Context, docs []extract.Document, progress func(done, total int)) (pipeline.IngestResult, error)
}

func New(log *slog.Logger, ingester Ingester, maxUploadBytes int64) Handler {
	return Handler{
		log:            log,
		ingester:       ingester,
		maxUploadBytes: maxUploadBytes,
	}
}

type Handler struct {
	log            *slog.Logger
	ingester       Ingester
	maxUploadBytes int64
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.log.Error("failed to parse multipart form", slog.Any("error", err))
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respond.WithError(w, fmt.Sprintf("upload exceeds the limit of %d bytes", mbe.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		respond.WithError(w, "failed to parse multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respond.WithError(w, "no files provided, upload one or more PDFs in the \"files\" field", http.StatusBadRequest)
		return
	}
	docs := make([]extract.Document, len(files))
	for i, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			h.log.Error("failed to read uploaded file", slog.String("name", fh.Filename), slog.Any("error", err))
			respond.WithError(w, "failed to read uploaded file", http.StatusBadRequest)
			return
		}
		docs[i] = extract.Document{Name: fh.Filename, Data: data}
	}

	res, err := h.ingester.Ingest(r.Context(), docs, nil)
	if err != nil {
		h.log.Error("failed to process documents", slog.Any("error", err))
		status, msg := handlers.Status(err, "failed to process documents")
		respond.WithError(w, msg, status)
		return
	}

	respond.WithJSON(w, models.DocumentsPostResponse{
		BuildID:   res.BuildID,
		Documents: res.Documents,
		Skipped:   res.Skipped,
		Pages:     res.Pages,
		Chunks:    res.Chunks,
	}, http.StatusOK)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
