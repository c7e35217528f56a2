package post

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/pdfqa"
	"github.com/a-h/pdfqa/extract"
	"github.com/a-h/pdfqa/models"
	"github.com/a-h/pdfqa/pipeline"
	"github.com/google/go-cmp/cmp"
)

type ingesterFunc func(ctx context.Context, docs []extract.Document) (pipeline.IngestResult, error)

func (f ingesterFunc) Ingest(ctx context.Context, docs []extract.Document, progress func(done, total int)) (pipeline.IngestResult, error) {
	return f(ctx, docs)
}

func multipartBody(t *testing.T, files map[string]string) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err = io.WriteString(fw, content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("uploaded files are ingested", func(t *testing.T) {
		var received []extract.Document
		h := New(log, ingesterFunc(func(ctx context.Context, docs []extract.Document) (pipeline.IngestResult, error) {
			received = docs
			return pipeline.IngestResult{BuildID: "build", Documents: []string{"a.pdf"}, Pages: 3, Chunks: 7}, nil
		}), 1<<20)
		body, contentType := multipartBody(t, map[string]string{"a.pdf": "%PDF-1.4"})
		r := httptest.NewRequest(http.MethodPost, "/documents", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		expectedDocs := []extract.Document{{Name: "a.pdf", Data: []byte("%PDF-1.4")}}
		if diff := cmp.Diff(expectedDocs, received); diff != "" {
			t.Error(diff)
		}
		var actual models.DocumentsPostResponse
		if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		expected := models.DocumentsPostResponse{BuildID: "build", Documents: []string{"a.pdf"}, Pages: 3, Chunks: 7}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
	})

	tests := []struct {
		name           string
		files          map[string]string
		contentType    string
		ingestErr      error
		maxUploadBytes int64
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "requests must be multipart",
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "failed to parse multipart form",
		},
		{
			name:           "at least one file is required",
			files:          map[string]string{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "no files provided",
		},
		{
			name:           "uploads are size limited",
			files:          map[string]string{"big.pdf": strings.Repeat("x", 2048)},
			maxUploadBytes: 1024,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "upload exceeds the limit of 1024 bytes",
		},
		{
			name:           "unreadable documents are bad requests",
			files:          map[string]string{"broken.pdf": "nope"},
			ingestErr:      pdfqa.WithStage(pdfqa.StageExtract, fmt.Errorf("%w: \"broken.pdf\": not a PDF", pdfqa.ErrExtraction)),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "broken.pdf",
		},
		{
			name:           "embedding failures are bad gateways",
			files:          map[string]string{"a.pdf": "%PDF-1.4"},
			ingestErr:      pdfqa.WithStage(pdfqa.StageEmbed, pdfqa.ErrEmbeddingService),
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "failed to process documents",
		},
		{
			name:           "persistence failures are internal errors",
			files:          map[string]string{"a.pdf": "%PDF-1.4"},
			ingestErr:      pdfqa.WithStage(pdfqa.StagePersist, pdfqa.ErrPersistence),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to process documents",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			maxUploadBytes := test.maxUploadBytes
			if maxUploadBytes == 0 {
				maxUploadBytes = 1 << 20
			}
			h := New(log, ingesterFunc(func(ctx context.Context, docs []extract.Document) (pipeline.IngestResult, error) {
				return pipeline.IngestResult{}, test.ingestErr
			}), maxUploadBytes)
			body, contentType := multipartBody(t, test.files)
			if test.contentType != "" {
				contentType = test.contentType
			}
			r := httptest.NewRequest(http.MethodPost, "/documents", body)
			r.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != test.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", test.expectedStatus, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), test.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", test.expectedBody, w.Body.String())
			}
		})
	}
}
