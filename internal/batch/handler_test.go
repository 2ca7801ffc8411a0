package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"screener-backend/internal/analysis"
	"screener-backend/internal/candidates"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/jobs"
	"screener-backend/internal/queue"
	localstore "screener-backend/internal/shared/storage/object/local"
)

func newHandlerFixture(t *testing.T, script ...func() (json.RawMessage, error)) (*gin.Engine, *Manager, *jobs.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jobRepo := jobs.NewMemoryRepo()
	candRepo := candidates.NewMemoryRepo()
	scripted := &scriptedLLM{script: script}

	gateway := analysis.NewGateway(scripted)
	resolver := jobcontext.NewResolver(jobRepo, scripted)
	persister := NewPersister(candRepo, jobRepo)
	manager := NewManager(gateway, resolver, persister, nil, time.Millisecond)

	handler := NewHandler(manager, nil, nil)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router, manager, jobRepo
}

func multipartBody(t *testing.T, jobID string, fileNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if jobID != "" {
		if err := writer.WriteField("jobId", jobID); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, name := range fileNames {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte("resume text for " + name)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestStartBatchRunsToCompletion(t *testing.T) {
	router, manager, jobRepo := newHandlerFixture(t, scoredResult("Candidate One", 88))
	if err := jobRepo.InsertOne(context.Background(), jobs.Job{ID: "job-1", Title: "Backend Engineer"}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	body, contentType := multipartBody(t, "job-1", "one.txt")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var view RunView
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.ID == "" || len(view.Items) != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, ok := manager.Get(view.ID)
		if !ok {
			t.Fatalf("run disappeared")
		}
		if current.State != RunStateRunning {
			if current.State != RunStateCompleted {
				t.Fatalf("expected COMPLETED, got %s (%s)", current.State, current.Error)
			}
			if current.Completed != 1 || current.Items[0].Status != StatusCompleted {
				t.Fatalf("unexpected final view: %+v", current)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartBatchRejectsMissingFiles(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	body, contentType := multipartBody(t, "job-1")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStartBatchRejectsMissingSource(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	body, contentType := multipartBody(t, "", "one.txt")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

type captureQueue struct {
	sent []queue.Message
}

func (q *captureQueue) Send(ctx context.Context, msg queue.Message) error {
	_ = ctx
	q.sent = append(q.sent, msg)
	return nil
}

func TestStartBatchEnqueuesWhenQueueConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jobRepo := jobs.NewMemoryRepo()
	candRepo := candidates.NewMemoryRepo()
	scripted := &scriptedLLM{}

	manager := NewManager(analysis.NewGateway(scripted), jobcontext.NewResolver(jobRepo, scripted), NewPersister(candRepo, jobRepo), nil, time.Millisecond)
	q := &captureQueue{}
	handler := NewHandler(manager, localstore.New(t.TempDir()), q)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))

	body, contentType := multipartBody(t, "job-1", "one.txt")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(q.sent) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(q.sent))
	}
	msg := q.sent[0]
	if msg.JobID != "job-1" || len(msg.Files) != 1 || msg.Files[0].StorageKey == "" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	var ack QueuedRun
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ack.State != "QUEUED" || !ack.Queued || ack.Pollable || ack.ID != msg.RunID || ack.Files != 1 {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	// queued runs execute in the worker; the response says so instead of
	// handing out a poll URL that would 404
	if _, ok := manager.Get(ack.ID); ok {
		t.Fatal("queued run should not be tracked by the in-process manager")
	}
	if scripted.calls != 0 {
		t.Fatalf("expected no analysis calls, got %d", scripted.calls)
	}
}

func TestGetBatchUnknownID(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
