package batch

import (
	"errors"
	"strings"

	"screener-backend/internal/analysis"
	"screener-backend/internal/jobcontext"
)

var ErrRunInProgress = errors.New("a batch run is already in progress")

const (
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodePersistence = "PERSISTENCE_ERROR"
	ErrorCodeStorage     = "STORAGE_ERROR"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)

// ValidationError rejects a run before any item transitions.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError wraps a candidate or counter write failure for one item.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StorageError wraps an object store read failure for one item.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage read failed: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	var analysisErr *analysis.Error
	if errors.As(err, &analysisErr) {
		return analysisErr.Code
	}
	var extractionErr *jobcontext.ExtractionError
	if errors.As(err, &extractionErr) {
		return jobcontext.ErrorCodeExtraction
	}
	var notFound *jobcontext.NotFoundError
	if errors.As(err, &notFound) {
		return jobcontext.ErrorCodeNotFound
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return ErrorCodePersistence
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return ErrorCodeStorage
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorCodeValidation
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
