package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/pdfqa/handlers"
	"github.com/a-h/pdfqa/models"
	"github.com/a-h/pdfqa/pipeline"
	"github.com/a-h/respond"
)

type Asker interface {
	Ask(ctx context.Context, question string) (pipeline.Result, error)
}

func New(log *slog.Logger, asker Asker) Handler {
	return Handler{
		log:   log,
		asker: asker,
	}
}

type Handler struct {
	log   *slog.Logger
	asker Asker
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.QueryPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	res, err := h.asker.Ask(r.Context(), req.Text)
	if err != nil {
		h.log.Error("failed to answer question", slog.Any("error", err))
		status, msg := handlers.Status(err, "failed to answer question")
		respond.WithError(w, msg, status)
		return
	}
	h.log.Info("answered question", slog.Int("sources", len(res.Sources)), slog.Bool("found", res.Answer.Found()))

	resp := models.QueryPostResponse{
		Answer:  string(res.Answer),
		Found:   res.Answer.Found(),
		Sources: make([]models.Source, len(res.Sources)),
	}
	for i, s := range res.Sources {
		resp.Sources[i] = models.Source{Text: s.Text, Position: s.Position, Score: s.Score}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
