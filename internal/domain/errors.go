package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is fatal at startup.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmbeddingModelMismatch marks a persisted index built with another
	// embedding model. It forces a rebuild.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

	ErrEmptyIndex         = errors.New("index is empty")
	ErrTranslationFailure = errors.New("translation failure")
	ErrGenerationFailure  = errors.New("generation failure")
	ErrLogWriteFailure    = errors.New("log write failure")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrRetrievalFailure   = errors.New("retrieval failure")

	// ErrInvalidInput covers malformed feedback and translation requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCacheMiss is returned by index caches when no complete snapshot exists.
	ErrCacheMiss = errors.New("index cache miss")
)

type TranslationStage string

const (
	StageToPivot  TranslationStage = "to_pivot"
	StageToSource TranslationStage = "to_source"
)

// TranslationError carries the language of the text that failed to translate.
type TranslationError struct {
	Stage    TranslationStage
	Language string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation %s (lang=%s): %v", e.Stage, e.Language, e.Err)
}

func (e *TranslationError) Unwrap() []error {
	return []error{ErrTranslationFailure, e.Err}
}

// ErrorKind names an error for API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuestion):
		return "InvalidQuestion"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrTranslationFailure):
		return "TranslationFailure"
	case errors.Is(err, ErrGenerationFailure):
		return "GenerationFailure"
	case errors.Is(err, ErrRetrievalFailure):
		return "RetrievalFailure"
	case errors.Is(err, ErrLogWriteFailure):
		return "LogWriteFailure"
	case errors.Is(err, ErrEmptyIndex):
		return "EmptyIndex"
	case errors.Is(err, ErrEmbeddingModelMismatch):
		return "EmbeddingModelMismatch"
	case errors.Is(err, ErrSourceUnavailable):
		return "SourceUnavailable"
	default:
		return "InternalError"
	}
}
