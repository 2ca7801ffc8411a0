package jobs

import "context"

// Repo defines persistence operations for jobs.
type Repo interface {
	Find(ctx context.Context) ([]Job, error)
	FindOne(ctx context.Context, jobID string) (Job, error)
	InsertOne(ctx context.Context, job Job) error
	UpdateOne(ctx context.Context, jobID string, update Update) error
}
