package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/pdfqa/handlers"
	"github.com/a-h/pdfqa/index"
	"github.com/a-h/pdfqa/models"
	"github.com/a-h/respond"
)

type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]index.Hit, error)
}

func New(log *slog.Logger, retriever Retriever) Handler {
	return Handler{
		log:       log,
		retriever: retriever,
	}
}

type Handler struct {
	log       *slog.Logger
	retriever Retriever
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ContextPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	hits, err := h.retriever.Retrieve(r.Context(), req.Text)
	if err != nil {
		h.log.Error("failed to find nearest chunks", slog.Any("error", err))
		status, msg := handlers.Status(err, "failed to find nearest chunks")
		respond.WithError(w, msg, status)
		return
	}

	resp := models.ContextPostResponse{
		Results: make([]models.Source, len(hits)),
	}
	for i, hit := range hits {
		resp.Results[i] = models.Source{Text: hit.Text, Position: hit.Position, Score: hit.Score}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
