package jobcontext

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"screener-backend/internal/jobs"
	"screener-backend/internal/llm"
)

type extractStub struct {
	raw   json.RawMessage
	err   error
	calls int
}

func (s *extractStub) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	return nil, llm.ErrNotImplemented
}

func (s *extractStub) ExtractJobDetails(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.raw, nil
}

func newTestResolver(repo jobs.Repo, client llm.Client) *Resolver {
	r := NewResolver(repo, client)
	r.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	r.NewID = func() string { return "job-minted" }
	return r
}

func TestFromStoreRefetchesJob(t *testing.T) {
	repo := jobs.NewMemoryRepo()
	ctx := context.Background()
	if err := repo.InsertOne(ctx, jobs.Job{
		ID:          "job-1",
		Title:       "Backend Engineer",
		Skills:      []string{"Go", "SQL"},
		Description: "Build services",
		Location:    "Berlin",
	}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	resolver := newTestResolver(repo, nil)
	res, err := resolver.FromStore(ctx, "job-1")
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if !res.Stored {
		t.Fatalf("store-resolved context must be marked stored")
	}
	if res.JobID != "job-1" || res.Context.Title != "Backend Engineer" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if len(res.Context.Skills) != 2 {
		t.Fatalf("unexpected skills: %v", res.Context.Skills)
	}
}

func TestFromStoreMissingJob(t *testing.T) {
	resolver := newTestResolver(jobs.NewMemoryRepo(), nil)
	_, err := resolver.FromStore(context.Background(), "job-gone")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.JobID != "job-gone" {
		t.Fatalf("unexpected job id: %s", notFound.JobID)
	}
}

func TestFromUploadPersistsJobWithDefaults(t *testing.T) {
	repo := jobs.NewMemoryRepo()
	stub := &extractStub{raw: json.RawMessage(`{"title": "Platform Engineer"}`)}
	resolver := newTestResolver(repo, stub)

	res, err := resolver.FromUpload(context.Background(), UploadedDocument{
		FileName: "posting.txt",
		MimeType: "text/plain",
		Data:     []byte("We are hiring a platform engineer."),
	})
	if err != nil {
		t.Fatalf("FromUpload: %v", err)
	}
	if res.Stored {
		t.Fatalf("upload-resolved context must not be marked stored")
	}
	if res.JobID != "job-minted" {
		t.Fatalf("unexpected job id: %s", res.JobID)
	}

	job, err := repo.FindOne(context.Background(), "job-minted")
	if err != nil {
		t.Fatalf("minted job must be persisted before scoring: %v", err)
	}
	if job.Department != "General" || job.Location != "Remote" || job.Type != "Full-time" {
		t.Fatalf("defaults not applied: %+v", job)
	}
	if job.Skills == nil || len(job.Skills) != 0 {
		t.Fatalf("skills must default to an empty list, got %v", job.Skills)
	}
}

func TestFromUploadExtractionFailurePersistsNothing(t *testing.T) {
	repo := jobs.NewMemoryRepo()
	stub := &extractStub{err: errors.New("provider unavailable")}
	resolver := newTestResolver(repo, stub)

	_, err := resolver.FromUpload(context.Background(), UploadedDocument{
		FileName: "posting.txt",
		MimeType: "text/plain",
		Data:     []byte("We are hiring."),
	})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}

	stored, err := repo.Find(context.Background())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("no job may be persisted on extraction failure, got %d", len(stored))
	}
}

func TestFromUploadMalformedOutput(t *testing.T) {
	repo := jobs.NewMemoryRepo()
	stub := &extractStub{raw: json.RawMessage(`not json`)}
	resolver := newTestResolver(repo, stub)

	_, err := resolver.FromUpload(context.Background(), UploadedDocument{
		FileName: "posting.txt",
		MimeType: "text/plain",
		Data:     []byte("We are hiring."),
	})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}
