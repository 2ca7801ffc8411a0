package jobcontext

import "fmt"

const (
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeExtraction = "EXTRACTION_ERROR"
)

// NotFoundError reports that a stored job vanished between listing and
// resolution.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// ExtractionError reports that job-description extraction failed. Nothing is
// persisted when it is returned.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("job extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
