package candidates

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores candidates in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byJob map[string][]Candidate
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byJob: make(map[string][]Candidate)}
}

// InsertOne stores the candidate.
func (r *MemoryRepo) InsertOne(ctx context.Context, candidate Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byJob[candidate.JobID] = append(r.byJob[candidate.JobID], candidate)
	return nil
}

// ExistsBySource reports whether the source document already has a record.
func (r *MemoryRepo) ExistsBySource(ctx context.Context, jobID, sourceKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byJob[jobID] {
		if c.SourceKey != "" && c.SourceKey == sourceKey {
			return true, nil
		}
	}
	return false, nil
}

// FindByJob returns candidates for a job, highest score first.
func (r *MemoryRepo) FindByJob(ctx context.Context, jobID string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]Candidate(nil), r.byJob[jobID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
