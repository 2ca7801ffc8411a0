package candidates

import "context"

// Repo defines persistence operations for candidates.
type Repo interface {
	InsertOne(ctx context.Context, candidate Candidate) error
	FindByJob(ctx context.Context, jobID string) ([]Candidate, error)
	// ExistsBySource reports whether a candidate for this job was already
	// persisted from the same source document.
	ExistsBySource(ctx context.Context, jobID, sourceKey string) (bool, error)
}
