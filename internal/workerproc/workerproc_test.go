package workerproc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"screener-backend/internal/analysis"
	"screener-backend/internal/batch"
	"screener-backend/internal/bootstrap"
	"screener-backend/internal/candidates"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/jobs"
	"screener-backend/internal/llm"
	"screener-backend/internal/queue"
	localstore "screener-backend/internal/shared/storage/object/local"
)

func TestParseMessageRejectsEmptyBody(t *testing.T) {
	_, meta, err := ParseMessage("")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if meta.BodyLen != 0 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageRejectsBadJSON(t *testing.T) {
	_, _, err := ParseMessage("{not json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestParseMessageRequiresExactlyOneSource(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{
			name: "job id only",
			body: `{"runId":"run-1","requestId":"req-1","jobId":"job-1","files":[{"fileName":"a.pdf","storageKey":"k"}]}`,
			ok:   true,
		},
		{
			name: "description key only",
			body: `{"runId":"run-1","requestId":"req-1","jobDescriptionKey":"jd/key.txt","files":[{"fileName":"a.pdf","storageKey":"k"}]}`,
			ok:   true,
		},
		{
			name: "both sources",
			body: `{"jobId":"job-1","jobDescriptionKey":"jd/key.txt","files":[{"fileName":"a.pdf"}]}`,
		},
		{
			name: "neither source",
			body: `{"files":[{"fileName":"a.pdf"}]}`,
		},
		{
			name: "no files",
			body: `{"jobId":"job-1","files":[]}`,
		},
	}

	for _, tc := range cases {
		_, _, err := ParseMessage(tc.body)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			var invalid ErrInvalidMessage
			if !errors.As(err, &invalid) {
				t.Fatalf("%s: expected ErrInvalidMessage, got %v", tc.name, err)
			}
		}
	}
}

func TestComputeMetaHashesBody(t *testing.T) {
	meta := ComputeMeta("payload")
	if meta.BodyLen != len("payload") || meta.BodySHA == "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

type fixedLLM struct {
	calls int
}

func (f *fixedLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	f.calls++
	return json.RawMessage(`{
		"candidateName": "Taylor Reed",
		"currentRole": "Engineer",
		"matchScore": 90,
		"jobDescriptionMatch": {"score": 90, "justification": "ok"},
		"qualificationMatch": {"score": 90, "justification": "ok"},
		"resumeQualityMatch": {"score": 90, "justification": "ok"},
		"deepAnalysis": {"summary": "ok"}
	}`), nil
}

func (f *fixedLLM) ExtractJobDetails(ctx context.Context, input llm.ExtractInput) (json.RawMessage, error) {
	return nil, llm.ErrNotImplemented
}

func TestHandleMessageRedeliveryPersistsEachSourceOnce(t *testing.T) {
	ctx := context.Background()
	store := localstore.New(t.TempDir())

	keyA, _, _, err := store.Save(ctx, "batch-req-1", "a.txt", strings.NewReader("resume a"))
	if err != nil {
		t.Fatalf("stage a.txt: %v", err)
	}
	keyB, _, _, err := store.Save(ctx, "batch-req-1", "b.txt", strings.NewReader("resume b"))
	if err != nil {
		t.Fatalf("stage b.txt: %v", err)
	}

	jobRepo := jobs.NewMemoryRepo()
	candidateRepo := candidates.NewMemoryRepo()
	if err := jobRepo.InsertOne(ctx, jobs.Job{ID: "job-1", Title: "Backend Engineer"}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	client := &fixedLLM{}
	app := &bootstrap.App{
		Store:          store,
		JobsRepo:       jobRepo,
		CandidatesRepo: candidateRepo,
		Gateway:        analysis.NewGateway(client),
		Resolver:       jobcontext.NewResolver(jobRepo, client),
		Persister:      batch.NewPersister(candidateRepo, jobRepo),
	}
	app.Config.AnalysisDelay = time.Millisecond

	body, err := queue.EncodeMessage(queue.Message{
		RunID:     "run-1",
		RequestID: "req-1",
		JobID:     "job-1",
		Files: []queue.FileRef{
			{FileName: "a.txt", MimeType: "text/plain", StorageKey: keyA, SizeBytes: 8},
			{FileName: "b.txt", MimeType: "text/plain", StorageKey: keyB, SizeBytes: 8},
		},
	})
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	// first delivery, then a redelivery of the same message
	for i := 0; i < 2; i++ {
		if err := HandleMessage(ctx, app, string(body)); err != nil {
			t.Fatalf("HandleMessage delivery %d: %v", i+1, err)
		}
	}

	if client.calls != 4 {
		t.Fatalf("redelivery re-analyzes both items, expected 4 calls, got %d", client.calls)
	}
	stored, err := candidateRepo.FindByJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindByJob: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("each source document must persist exactly once, got %d records", len(stored))
	}
	job, err := jobRepo.FindOne(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if job.Applicants != 2 || job.HighMatches != 2 {
		t.Fatalf("counters must count each source once: %+v", job)
	}
}
