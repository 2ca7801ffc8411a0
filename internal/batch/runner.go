package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"screener-backend/internal/analysis"
	"screener-backend/internal/extract"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/shared/config"
	"screener-backend/internal/shared/metrics"
	"screener-backend/internal/shared/storage/object"
	"screener-backend/internal/shared/telemetry"
)

// Source names where the job context for a run comes from. Exactly one
// field must be set.
type Source struct {
	JobID  string
	Upload *jobcontext.UploadedDocument
}

// Summary reports the outcome of one run.
type Summary struct {
	JobID     string         `json:"jobId"`
	Items     []Item         `json:"items"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	LastError string         `json:"lastError,omitempty"`
	Counts    map[Status]int `json:"-"`
}

// Runner owns the upload queue and drives items through the state machine
// one at a time, waiting a fixed delay between items to stay inside the
// provider's request quota.
type Runner struct {
	mu      sync.Mutex
	running bool
	items   []*Item

	gateway   *analysis.Gateway
	resolver  *jobcontext.Resolver
	persister *Persister
	store     object.ObjectStore

	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// NewRunner constructs a Runner with the default inter-item delay.
func NewRunner(gateway *analysis.Gateway, resolver *jobcontext.Resolver, persister *Persister, store object.ObjectStore) *Runner {
	return &Runner{
		gateway:   gateway,
		resolver:  resolver,
		persister: persister,
		store:     store,
		delay:     config.DefaultAnalysisDelay,
		sleep:     sleepContext,
		newID:     uuid.NewString,
	}
}

// SetDelay overrides the inter-item delay.
func (r *Runner) SetDelay(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = delay
}

// transition and fail are the only item mutations during a run; they hold
// r.mu so Items() snapshots taken by pollers never observe a torn write.
func (r *Runner) transition(item *Item, status Status, progress int) {
	r.mu.Lock()
	item.setStatus(status, progress)
	r.mu.Unlock()
}

func (r *Runner) fail(item *Item, msg string) {
	r.mu.Lock()
	item.setStatus(StatusError, 0)
	item.Error = msg
	r.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddFiles appends upload items to the queue in input order. It is rejected
// while a run is in progress.
func (r *Runner) AddFiles(files []FileInput) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrRunInProgress
	}
	added := make([]Item, 0, len(files))
	for _, file := range files {
		item := newItem(r.newID(), file)
		r.items = append(r.items, item)
		added = append(added, item.snapshot())
	}
	return added, nil
}

// RemoveItem deletes an item from the queue by ID. Completed items are left
// in place; removal during a run is rejected.
func (r *Runner) RemoveItem(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	for idx, item := range r.items {
		if item.ID != id {
			continue
		}
		if item.Status == StatusCompleted {
			return nil
		}
		r.items = append(r.items[:idx], r.items[idx+1:]...)
		return nil
	}
	return nil
}

// Items returns a snapshot of the queue.
func (r *Runner) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item.snapshot())
	}
	return out
}

// Run resolves the job context once, then processes every queued item in
// order. Item failures are isolated; only context resolution failures and
// validation failures abort the whole run.
func (r *Runner) Run(ctx context.Context, requestID string, source Source) (Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Summary{}, ErrRunInProgress
	}
	if len(r.items) == 0 {
		r.mu.Unlock()
		return Summary{}, &ValidationError{Message: "no files selected"}
	}
	if (source.JobID == "") == (source.Upload == nil) {
		r.mu.Unlock()
		return Summary{}, &ValidationError{Message: "exactly one of jobId or job description upload is required"}
	}
	r.running = true
	delay := r.delay
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	metrics.IncBatchRunStarted()

	res, err := r.resolveContext(ctx, source)
	if err != nil {
		metrics.IncBatchRunAborted()
		telemetry.Error("batch.resolve_failed", map[string]any{
			"request_id": requestID,
			"code":       classifyFailure(err),
			"error":      sanitizeError(err),
		})
		return Summary{}, err
	}

	summary := Summary{JobID: res.JobID, Counts: make(map[Status]int)}
	for idx, item := range r.items {
		if idx > 0 {
			// quota is not refunded for failed calls, so the delay
			// applies after every item, including skipped ones
			if err := r.sleep(ctx, delay); err != nil {
				metrics.IncBatchRunAborted()
				return r.finishSummary(summary), err
			}
		}
		if err := ctx.Err(); err != nil {
			metrics.IncBatchRunAborted()
			return r.finishSummary(summary), err
		}

		if item.Status == StatusCompleted {
			metrics.IncItemSkipped()
			summary.Skipped++
			continue
		}

		if err := r.processItem(ctx, requestID, res, item); err != nil {
			msg := sanitizeError(err)
			r.fail(item, msg)
			summary.LastError = msg
			metrics.IncItemFailed()
			telemetry.Error("batch.item.failed", map[string]any{
				"request_id": requestID,
				"item_id":    item.ID,
				"file_name":  item.FileName,
				"code":       classifyFailure(err),
				"error":      msg,
			})
			continue
		}
		metrics.IncItemCompleted()
	}

	metrics.IncBatchRunCompleted()
	return r.finishSummary(summary), nil
}

func (r *Runner) finishSummary(summary Summary) Summary {
	for _, item := range r.items {
		snap := item.snapshot()
		summary.Items = append(summary.Items, snap)
		summary.Counts[snap.Status]++
	}
	summary.Completed = summary.Counts[StatusCompleted] - summary.Skipped
	if summary.Completed < 0 {
		summary.Completed = 0
	}
	summary.Failed = summary.Counts[StatusError]
	return summary
}

func (r *Runner) resolveContext(ctx context.Context, source Source) (jobcontext.Resolution, error) {
	if source.Upload != nil {
		return r.resolver.FromUpload(ctx, *source.Upload)
	}
	return r.resolver.FromStore(ctx, source.JobID)
}

func (r *Runner) processItem(ctx context.Context, requestID string, res jobcontext.Resolution, item *Item) error {
	itemStart := time.Now()
	prev := item.Status
	r.transition(item, StatusReading, 10)
	r.logStatus(requestID, item, prev, itemStart)

	data, err := r.readItem(ctx, item)
	if err != nil {
		return err
	}
	text, cached := r.cachedText(ctx, item)
	if !cached {
		text, err = extract.ExtractTextFromBytes(ctx, data, item.MimeType, item.FileName)
		if err != nil {
			return err
		}
		if item.StorageKey != "" && r.store != nil {
			// best effort; the run does not depend on the derived copy
			if err := extract.SaveExtracted(ctx, r.store, item.StorageKey, text); err != nil {
				telemetry.Error("batch.item.extracted_copy_failed", map[string]any{
					"request_id": requestID,
					"item_id":    item.ID,
					"error":      sanitizeError(err),
				})
			}
		}
	}

	r.transition(item, StatusParsing, 30)
	r.logStatus(requestID, item, StatusReading, itemStart)

	started := time.Now()
	result, err := r.gateway.Analyze(ctx, analysis.Request{
		ResumeText:     text,
		JobTitle:       res.Context.Title,
		JobSkills:      res.Context.Skills,
		JobDescription: res.Context.Description,
		ItemID:         item.ID,
		RequestID:      requestID,
	})
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Microseconds()) / 1000.0)
	if err != nil {
		return err
	}

	r.transition(item, StatusParsing, 80)

	if err := r.persister.Persist(ctx, res, item.snapshot(), data, result); err != nil {
		return err
	}

	r.transition(item, StatusCompleted, 100)
	r.logStatus(requestID, item, StatusParsing, itemStart)
	return nil
}

func (r *Runner) readItem(ctx context.Context, item *Item) ([]byte, error) {
	if len(item.Data) > 0 {
		return item.Data, nil
	}
	if item.StorageKey == "" || r.store == nil {
		return nil, fmt.Errorf("read item %s: no file bytes available", item.ID)
	}
	body, err := r.store.Open(ctx, item.StorageKey)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("read item %s: %w", item.ID, err)}
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("read item %s: %w", item.ID, err)}
	}
	return data, nil
}

// cachedText returns the derived .extracted.txt copy for a stored item, if
// one exists from an earlier run.
func (r *Runner) cachedText(ctx context.Context, item *Item) (string, bool) {
	if item.StorageKey == "" || r.store == nil {
		return "", false
	}
	body, err := r.store.Open(ctx, item.StorageKey+".extracted.txt")
	if err != nil {
		return "", false
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

func (r *Runner) logStatus(requestID string, item *Item, from Status, itemStart time.Time) {
	telemetry.Info("batch.item.status", map[string]any{
		"request_id":        requestID,
		"item_id":           item.ID,
		"file_name":         item.FileName,
		"status":            string(item.Status),
		"status_transition": string(from) + "->" + string(item.Status),
		"progress":          item.Progress,
		"duration_ms":       time.Since(itemStart).Milliseconds(),
	})
}
