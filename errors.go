package pdfqa

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction is returned when a document cannot be read or parsed.
	ErrExtraction = errors.New("extraction failed")
	// ErrEmbeddingService is returned when the embedding provider fails or times out.
	ErrEmbeddingService = errors.New("embedding service failed")
	// ErrLLMService is returned when the LLM provider fails or times out.
	ErrLLMService = errors.New("llm service failed")
	// ErrPersistence is returned when the index cannot be written.
	ErrPersistence = errors.New("persistence failed")
	// ErrIndexNotFound is returned when no index has been built yet.
	ErrIndexNotFound = errors.New("no index found: upload and process documents first")
	// ErrCorruptIndex is returned when a stored index cannot be decoded or verified.
	ErrCorruptIndex = errors.New("index is corrupt")
	// ErrUntrustedIndex is returned when a stored index is not encrypted and
	// unsafe deserialization has not been allowed.
	ErrUntrustedIndex = fmt.Errorf("%w: index is not encrypted and unsafe deserialization is disabled", ErrCorruptIndex)
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConfiguration   = errors.New("invalid configuration")
)

// Stage names the step of the pipeline that failed.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageChunk      Stage = "chunk"
	StageEmbed      Stage = "embed"
	StageIndex      Stage = "index"
	StagePersist    Stage = "persist"
	StageLoad       Stage = "load"
	StageRetrieve   Stage = "retrieve"
	StageSynthesize Stage = "synthesize"
)

// StageError annotates an error with the pipeline stage it came from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WithStage wraps err in a StageError. A nil error stays nil.
func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) (stage Stage, ok bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
