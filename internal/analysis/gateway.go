package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"screener-backend/internal/llm"
)

const repairSystemMessage = "Fix the JSON to satisfy all schema constraints. Keep content the same, keep every score an integer between 0 and 100. Output JSON only."

// Request carries one resume plus the job context it is scored against.
type Request struct {
	ResumeText     string
	JobTitle       string
	JobSkills      []string
	JobDescription string
	ItemID         string
	RequestID      string
}

// Gateway validates LLM scoring output into a typed Result.
type Gateway struct {
	llm llm.Client
}

// NewGateway constructs a Gateway over the given LLM client.
func NewGateway(client llm.Client) *Gateway {
	return &Gateway{llm: client}
}

// Analyze scores one resume. It retries transient provider failures once and
// re-prompts once when the output fails schema validation.
func (g *Gateway) Analyze(ctx context.Context, req Request) (Result, error) {
	if g.llm == nil {
		return Result{}, &Error{Code: ErrorCodeAnalysis, Err: errors.New("no llm client configured")}
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return Result{}, &Error{Code: ErrorCodeAnalysis, Err: errors.New("empty resume text")}
	}

	client := newRetryingLLM(g.llm, req.ItemID, req.RequestID)
	input := llm.AnalyzeInput{
		ResumeText:     req.ResumeText,
		JobTitle:       req.JobTitle,
		JobSkills:      req.JobSkills,
		JobDescription: req.JobDescription,
	}

	raw, err := client.AnalyzeResume(ctx, input)
	if err != nil {
		return Result{}, classifyProviderError(err)
	}

	result, err := decodeResult(raw)
	if err == nil {
		return result, nil
	}
	log.Printf("analysis validation attempt=1 request_id=%s item_id=%s error=%s", req.RequestID, req.ItemID, sanitizeRetryError(err))

	ctxRetry := llm.WithExtraSystemMessage(ctx, repairSystemMessage)
	rawRetry, err := client.AnalyzeResume(ctxRetry, input)
	if err != nil {
		return Result{}, classifyProviderError(err)
	}
	result, err = decodeResult(rawRetry)
	if err != nil {
		log.Printf("analysis validation attempt=2 request_id=%s item_id=%s error=%s", req.RequestID, req.ItemID, sanitizeRetryError(err))
		return Result{}, &Error{Code: ErrorCodeSchemaMismatch, Err: err}
	}
	return result, nil
}

func decodeResult(raw json.RawMessage) (Result, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("llm output parse: %w", err)
	}
	result.Normalize()
	if err := result.Validate(); err != nil {
		return Result{}, fmt.Errorf("llm output invalid: %w", err)
	}
	return result, nil
}

func classifyProviderError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "openai request timeout") {
		return &Error{Code: ErrorCodeLLMTimeout, Retryable: true, Err: err}
	}
	return &Error{Code: ErrorCodeAnalysis, Retryable: shouldRetryLLM(err), Err: err}
}
