package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"screener-backend/internal/analysis"
	"screener-backend/internal/candidates"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/jobs"
)

// Document payloads at or above this size are not inlined into the candidate
// record; the record still persists without the bytes.
const maxInlineDocumentBytes = 1 << 20

// Scores above this threshold count toward a job's high-match counter.
const highMatchThreshold = 80

// Persister writes one candidate record per completed item and maintains the
// associated job's aggregate counters.
type Persister struct {
	Candidates candidates.Repo
	Jobs       jobs.Repo
	Now        func() time.Time
	NewID      func() string
}

// NewPersister constructs a Persister with default clock and ID generation.
func NewPersister(candidateRepo candidates.Repo, jobRepo jobs.Repo) *Persister {
	return &Persister{
		Candidates: candidateRepo,
		Jobs:       jobRepo,
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
	}
}

// Persist stores the candidate derived from a successful analysis, then
// updates the job's counters. Counter updates are skipped when the job was
// minted from an uploaded description rather than the job store.
//
// Persist is idempotent per (job, source document): a queue redelivery that
// re-processes an already persisted item writes nothing and leaves the
// counters untouched.
func (p *Persister) Persist(ctx context.Context, res jobcontext.Resolution, item Item, data []byte, result analysis.Result) error {
	sourceKey := sourceKeyFor(item, data)
	exists, err := p.Candidates.ExistsBySource(ctx, res.JobID, sourceKey)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if exists {
		return nil
	}

	scores, err := result.ScoresJSON()
	if err != nil {
		return &PersistenceError{Err: err}
	}
	deepAnalysis, err := result.DeepAnalysisJSON()
	if err != nil {
		return &PersistenceError{Err: err}
	}

	now := p.Now()
	candidate := candidates.Candidate{
		ID:           p.NewID(),
		JobID:        res.JobID,
		Name:         result.CandidateName,
		CurrentRole:  result.CurrentRole,
		MatchScore:   result.MatchScore,
		Scores:       scores,
		DeepAnalysis: deepAnalysis,
		FileName:     item.FileName,
		SourceKey:    sourceKey,
		AppliedDate:  now,
		CreatedAt:    now,
	}
	if item.SizeBytes < maxInlineDocumentBytes {
		candidate.DocumentData = data
	}

	if err := p.Candidates.InsertOne(ctx, candidate); err != nil {
		return &PersistenceError{Err: err}
	}

	if !res.Stored {
		return nil
	}
	return p.updateCounters(ctx, res.JobID, result.MatchScore)
}

// sourceKeyFor identifies the source document: the storage key for staged
// uploads, otherwise a content hash for inline payloads.
func sourceKeyFor(item Item, data []byte) string {
	if item.StorageKey != "" {
		return item.StorageKey
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (p *Persister) updateCounters(ctx context.Context, jobID string, score int) error {
	job, err := p.Jobs.FindOne(ctx, jobID)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	applicants := job.Applicants + 1
	update := jobs.Update{Applicants: &applicants}
	if score > highMatchThreshold {
		highMatches := job.HighMatches + 1
		update.HighMatches = &highMatches
	}
	if err := p.Jobs.UpdateOne(ctx, jobID, update); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}
