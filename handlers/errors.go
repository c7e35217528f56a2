// Package handlers holds the HTTP handlers, one package per route.
package handlers

import (
	"errors"
	"net/http"

	"github.com/a-h/pdfqa"
)

// Status maps an error from the pipeline to an HTTP status code and a
// message that is safe to show to the caller.
func Status(err error, fallbackMsg string) (status int, msg string) {
	switch {
	case errors.Is(err, pdfqa.ErrIndexNotFound):
		return http.StatusNotFound, pdfqa.ErrIndexNotFound.Error()
	case errors.Is(err, pdfqa.ErrInvalidArgument), errors.Is(err, pdfqa.ErrExtraction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, pdfqa.ErrEmbeddingService), errors.Is(err, pdfqa.ErrLLMService):
		return http.StatusBadGateway, fallbackMsg
	}
	return http.StatusInternalServerError, fallbackMsg
}
