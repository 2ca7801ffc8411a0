package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"screener-backend/internal/analysis"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/shared/storage/object"
	"screener-backend/internal/shared/telemetry"
)

// RunState is the lifecycle of one submitted batch.
type RunState string

const (
	RunStatePending   RunState = "PENDING"
	RunStateRunning   RunState = "RUNNING"
	RunStateCompleted RunState = "COMPLETED"
	RunStateFailed    RunState = "FAILED"
	RunStateCanceled  RunState = "CANCELED"
)

// Run is one submitted batch tracked by the Manager for polling.
type Run struct {
	ID        string
	State     RunState
	Source    Source
	Summary   Summary
	Error     string
	ErrorCode string
	CreatedAt time.Time

	runner *Runner
	cancel context.CancelFunc
}

// RunView is the poll-safe snapshot of a Run.
type RunView struct {
	ID        string   `json:"id"`
	State     RunState `json:"state"`
	JobID     string   `json:"jobId,omitempty"`
	Items     []Item   `json:"items"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	LastError string   `json:"lastError,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

// Manager owns batch runs and executes them on background goroutines so the
// HTTP layer can poll for progress.
type Manager struct {
	mu   sync.Mutex
	runs map[string]*Run

	gateway   *analysis.Gateway
	resolver  *jobcontext.Resolver
	persister *Persister
	store     object.ObjectStore
	delay     time.Duration

	now   func() time.Time
	newID func() string
}

// NewManager constructs a Manager.
func NewManager(gateway *analysis.Gateway, resolver *jobcontext.Resolver, persister *Persister, store object.ObjectStore, delay time.Duration) *Manager {
	return &Manager{
		runs:      make(map[string]*Run),
		gateway:   gateway,
		resolver:  resolver,
		persister: persister,
		store:     store,
		delay:     delay,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Start queues the files and launches the run in the background.
func (m *Manager) Start(requestID string, source Source, files []FileInput) (RunView, error) {
	runner := NewRunner(m.gateway, m.resolver, m.persister, m.store)
	if m.delay > 0 {
		runner.SetDelay(m.delay)
	}
	if _, err := runner.AddFiles(files); err != nil {
		return RunView{}, err
	}
	if len(files) == 0 {
		return RunView{}, &ValidationError{Message: "no files selected"}
	}
	if (source.JobID == "") == (source.Upload == nil) {
		return RunView{}, &ValidationError{Message: "exactly one of jobId or job description upload is required"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:        m.newID(),
		State:     RunStateRunning,
		Source:    source,
		CreatedAt: m.now(),
		runner:    runner,
		cancel:    cancel,
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	go m.execute(ctx, requestID, run)
	return m.viewLockedCopy(run.ID), nil
}

func (m *Manager) execute(ctx context.Context, requestID string, run *Run) {
	summary, err := run.runner.Run(ctx, requestID, run.Source)

	m.mu.Lock()
	defer m.mu.Unlock()
	run.Summary = summary
	switch {
	case err == nil:
		run.State = RunStateCompleted
	case ctx.Err() != nil:
		run.State = RunStateCanceled
		run.Error = sanitizeError(err)
		run.ErrorCode = ErrorCodeInternal
	default:
		run.State = RunStateFailed
		run.Error = sanitizeError(err)
		run.ErrorCode = classifyFailure(err)
	}
	telemetry.Info("batch.run.finished", map[string]any{
		"request_id": requestID,
		"run_id":     run.ID,
		"state":      string(run.State),
		"completed":  summary.Completed,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
	})
}

// Get returns a snapshot of a run; the second result is false when absent.
func (m *Manager) Get(runID string) (RunView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return RunView{}, false
	}
	return m.view(run), true
}

// Cancel aborts an in-flight run between items.
func (m *Manager) Cancel(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return false
	}
	run.cancel()
	return true
}

func (m *Manager) viewLockedCopy(runID string) RunView {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return RunView{}
	}
	return m.view(run)
}

func (m *Manager) view(run *Run) RunView {
	items := run.Summary.Items
	if run.State == RunStateRunning || items == nil {
		items = run.runner.Items()
	}
	return RunView{
		ID:        run.ID,
		State:     run.State,
		JobID:     run.Summary.JobID,
		Items:     items,
		Completed: run.Summary.Completed,
		Failed:    run.Summary.Failed,
		Skipped:   run.Summary.Skipped,
		LastError: run.Summary.LastError,
		Error:     run.Error,
		ErrorCode: run.ErrorCode,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
}
