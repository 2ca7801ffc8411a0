package jobs

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Job)}
}

// Find returns all jobs, newest first.
func (r *MemoryRepo) Find(ctx context.Context) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.byID))
	for _, job := range r.byID {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindOne returns a job by its ID.
func (r *MemoryRepo) FindOne(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// InsertOne stores the job.
func (r *MemoryRepo) InsertOne(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = job
	return nil
}

// UpdateOne applies the non-nil fields of the update to an existing job.
func (r *MemoryRepo) UpdateOne(ctx context.Context, jobID string, update Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if update.Title != nil {
		job.Title = *update.Title
	}
	if update.Department != nil {
		job.Department = *update.Department
	}
	if update.Location != nil {
		job.Location = *update.Location
	}
	if update.Type != nil {
		job.Type = *update.Type
	}
	if update.Description != nil {
		job.Description = *update.Description
	}
	if update.Skills != nil {
		job.Skills = append([]string(nil), (*update.Skills)...)
	}
	if update.Applicants != nil {
		job.Applicants = *update.Applicants
	}
	if update.HighMatches != nil {
		job.HighMatches = *update.HighMatches
	}
	r.byID[jobID] = job
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
