package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"screener-backend/internal/llm"
)

type stubLLM struct {
	responses []json.RawMessage
	errs      []error
	calls     int
	sawRepair bool
}

func (s *stubLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	idx := s.calls
	s.calls++
	if _, ok := llm.ExtraSystemMessageFromContext(ctx); ok {
		s.sawRepair = true
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return nil, fmt.Errorf("unexpected call %d", idx)
}

func (s *stubLLM) ExtractJobDetails(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	return nil, llm.ErrNotImplemented
}

func validResultJSON() json.RawMessage {
	return json.RawMessage(`{
		"candidateName": "Jordan Smith",
		"currentRole": "Staff Engineer",
		"matchScore": 87,
		"jobDescriptionMatch": {"score": 88, "justification": "strong overlap"},
		"qualificationMatch": {"score": 85, "justification": "meets requirements"},
		"resumeQualityMatch": {"score": 80, "justification": "clear"},
		"deepAnalysis": {"summary": "solid", "experienceLevel": "senior", "roleFitLevel": "high", "culturalFit": "good"}
	}`)
}

func TestGatewayAnalyzeValidFirstAttempt(t *testing.T) {
	stub := &stubLLM{responses: []json.RawMessage{validResultJSON()}}
	gw := NewGateway(stub)

	result, err := gw.Analyze(context.Background(), Request{ResumeText: "resume", JobTitle: "Backend Engineer"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.CandidateName != "Jordan Smith" || result.MatchScore != 87 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.DeepAnalysis.Strengths == nil {
		t.Fatalf("normalize should replace nil lists with empty slices")
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 call, got %d", stub.calls)
	}
}

func TestGatewayAnalyzeRepairsSchemaFailure(t *testing.T) {
	stub := &stubLLM{responses: []json.RawMessage{
		json.RawMessage(`{"candidateName": ""}`),
		validResultJSON(),
	}}
	gw := NewGateway(stub)

	result, err := gw.Analyze(context.Background(), Request{ResumeText: "resume"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.CandidateName != "Jordan Smith" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.calls)
	}
	if !stub.sawRepair {
		t.Fatalf("repair attempt should carry an extra system message")
	}
}

func TestGatewayAnalyzeSchemaMismatchAfterRepair(t *testing.T) {
	stub := &stubLLM{responses: []json.RawMessage{
		json.RawMessage(`not json`),
		json.RawMessage(`not json either`),
	}}
	gw := NewGateway(stub)

	_, err := gw.Analyze(context.Background(), Request{ResumeText: "resume"})
	var analysisErr *Error
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if analysisErr.Code != ErrorCodeSchemaMismatch {
		t.Fatalf("expected %s, got %s", ErrorCodeSchemaMismatch, analysisErr.Code)
	}
	if analysisErr.Retryable {
		t.Fatalf("schema mismatch must not be retryable")
	}
}

func TestGatewayAnalyzeTimeoutIsRetryable(t *testing.T) {
	timeout := fmt.Errorf("openai request timeout: %w", context.DeadlineExceeded)
	stub := &stubLLM{errs: []error{timeout, timeout}}
	gw := NewGateway(stub)

	_, err := gw.Analyze(context.Background(), Request{ResumeText: "resume"})
	var analysisErr *Error
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if analysisErr.Code != ErrorCodeLLMTimeout || !analysisErr.Retryable {
		t.Fatalf("expected retryable timeout, got %+v", analysisErr)
	}
	// one transient retry inside the decorator
	if stub.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.calls)
	}
}

func TestResultNormalizeClampsScores(t *testing.T) {
	result := Result{
		CandidateName:       "A",
		MatchScore:          140,
		JobDescriptionMatch: SubScore{Score: -5},
	}
	result.Normalize()
	if result.MatchScore != 100 {
		t.Fatalf("expected clamp to 100, got %d", result.MatchScore)
	}
	if result.JobDescriptionMatch.Score != 0 {
		t.Fatalf("expected clamp to 0, got %d", result.JobDescriptionMatch.Score)
	}

	scores, err := result.ScoresJSON()
	if err != nil {
		t.Fatalf("ScoresJSON: %v", err)
	}
	var decoded map[string]SubScore
	if err := json.Unmarshal(scores, &decoded); err != nil {
		t.Fatalf("unmarshal scores: %v", err)
	}
	if _, ok := decoded["candidateRecordMatch"]; ok {
		t.Fatalf("absent optional dimension must not be encoded")
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(decoded))
	}
}
