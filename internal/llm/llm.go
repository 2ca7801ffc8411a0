package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for resume scoring and job-description extraction.
type Client interface {
	AnalyzeResume(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
	ExtractJobDetails(ctx context.Context, input ExtractInput) (json.RawMessage, error)
}

// AnalyzeInput captures the inputs needed to score one resume against a job.
type AnalyzeInput struct {
	ResumeText     string
	JobTitle       string
	JobSkills      []string
	JobDescription string
}

// ExtractInput carries the text of an uploaded job-description document.
type ExtractInput struct {
	DocumentText string
}

type fixJSONKey struct{}

// WithFixJSON returns a context signaling a fix-JSON retry with the given raw output.
func WithFixJSON(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, fixJSONKey{}, raw)
}

// FixJSONFromContext returns the raw JSON to repair, if any.
func FixJSONFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(fixJSONKey{})
	raw, ok := val.(string)
	return raw, ok
}

type extraSystemKey struct{}

// WithExtraSystemMessage prepends an additional system instruction to the next call.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemKey{}, msg)
}

// ExtraSystemMessageFromContext returns the extra system instruction, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(extraSystemKey{})
	msg, ok := val.(string)
	return msg, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AnalyzeResume returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeResume(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}

// ExtractJobDetails returns ErrNotImplemented.
func (PlaceholderClient) ExtractJobDetails(ctx context.Context, input ExtractInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
