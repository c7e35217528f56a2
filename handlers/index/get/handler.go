package get

import (
	"log/slog"
	"net/http"

	"github.com/a-h/pdfqa/handlers"
	"github.com/a-h/pdfqa/index"
	"github.com/a-h/pdfqa/models"
	"github.com/a-h/respond"
)

type Statuser interface {
	Status() (index.Manifest, error)
}

func New(log *slog.Logger, statuser Statuser) Handler {
	return Handler{
		log:      log,
		statuser: statuser,
	}
}

type Handler struct {
	log      *slog.Logger
	statuser Statuser
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, err := h.statuser.Status()
	if err != nil {
		h.log.Error("failed to read index status", slog.Any("error", err))
		status, msg := handlers.Status(err, "failed to read index status")
		respond.WithError(w, msg, status)
		return
	}
	respond.WithJSON(w, models.IndexGetResponse{
		BuildID:        m.BuildID,
		CreatedAt:      m.CreatedAt,
		EmbeddingModel: m.EmbeddingModel,
		Dimension:      m.Dimension,
		Chunks:         m.Count,
		ChunkSize:      m.ChunkSize,
		ChunkOverlap:   m.ChunkOverlap,
		Documents:      m.Documents,
		Encrypted:      m.Encrypted,
	}, http.StatusOK)
}
