package analysis

import "fmt"

const (
	ErrorCodeAnalysis       = "ANALYSIS_ERROR"
	ErrorCodeLLMTimeout     = "LLM_TIMEOUT"
	ErrorCodeSchemaMismatch = "LLM_SCHEMA_MISMATCH"
)

// Error wraps a provider failure with a stable code and retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
