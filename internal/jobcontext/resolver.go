package jobcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"screener-backend/internal/extract"
	"screener-backend/internal/jobs"
	"screener-backend/internal/llm"
)

const (
	defaultDepartment = "General"
	defaultLocation   = "Remote"
	defaultType       = "Full-time"
)

// JobContext is the normalized view of a job that resumes are scored against.
type JobContext struct {
	Title       string
	Skills      []string
	Description string
	Location    string
}

// Resolution is a resolved job context plus the job identifier produced
// candidates are associated with. Stored is false when the job was minted
// from an uploaded description; aggregate counters are not maintained for
// such jobs.
type Resolution struct {
	Context JobContext
	JobID   string
	Stored  bool
}

// UploadedDocument is a job-description file supplied with the batch instead
// of a stored job identifier.
type UploadedDocument struct {
	FileName string
	MimeType string
	Data     []byte
}

// Resolver resolves the job context for a batch run from one of two sources.
type Resolver struct {
	Jobs  jobs.Repo
	LLM   llm.Client
	Now   func() time.Time
	NewID func() string
}

// NewResolver constructs a Resolver with default clock and ID generation.
func NewResolver(repo jobs.Repo, client llm.Client) *Resolver {
	return &Resolver{
		Jobs:  repo,
		LLM:   client,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// FromStore re-fetches the job by ID at resolution time. The store may have
// changed since the caller last listed jobs, so a cached listing is never
// trusted.
func (r *Resolver) FromStore(ctx context.Context, jobID string) (Resolution, error) {
	job, err := r.Jobs.FindOne(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return Resolution{}, &NotFoundError{JobID: jobID}
		}
		return Resolution{}, err
	}
	skills := job.Skills
	if skills == nil {
		skills = []string{}
	}
	return Resolution{
		Context: JobContext{
			Title:       job.Title,
			Skills:      skills,
			Description: job.Description,
			Location:    job.Location,
		},
		JobID:  job.ID,
		Stored: true,
	}, nil
}

type extractedJob struct {
	Title      string   `json:"title"`
	Department string   `json:"department"`
	Location   string   `json:"location"`
	Type       string   `json:"type"`
	Skills     []string `json:"skills"`
}

// FromUpload extracts job details from an uploaded description document and
// persists a new job record before any resume is scored. On extraction
// failure nothing is persisted and the batch must not proceed.
func (r *Resolver) FromUpload(ctx context.Context, doc UploadedDocument) (Resolution, error) {
	if r.LLM == nil {
		return Resolution{}, &ExtractionError{Err: errors.New("no llm client configured")}
	}

	text, err := extract.ExtractTextFromBytes(ctx, doc.Data, doc.MimeType, doc.FileName)
	if err != nil {
		return Resolution{}, &ExtractionError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Resolution{}, &ExtractionError{Err: errors.New("empty document text")}
	}

	raw, err := r.LLM.ExtractJobDetails(ctx, llm.ExtractInput{DocumentText: text})
	if err != nil {
		return Resolution{}, &ExtractionError{Err: err}
	}
	var extracted extractedJob
	if err := json.Unmarshal(raw, &extracted); err != nil {
		return Resolution{}, &ExtractionError{Err: fmt.Errorf("llm output parse: %w", err)}
	}
	applyDefaults(&extracted, doc.FileName)

	job := jobs.Job{
		ID:          r.NewID(),
		Title:       extracted.Title,
		Department:  extracted.Department,
		Location:    extracted.Location,
		Type:        extracted.Type,
		Skills:      extracted.Skills,
		Description: text,
		CreatedAt:   r.Now(),
	}
	if err := r.Jobs.InsertOne(ctx, job); err != nil {
		return Resolution{}, fmt.Errorf("persist extracted job: %w", err)
	}

	return Resolution{
		Context: JobContext{
			Title:       job.Title,
			Skills:      job.Skills,
			Description: job.Description,
			Location:    job.Location,
		},
		JobID:  job.ID,
		Stored: false,
	}, nil
}

func applyDefaults(extracted *extractedJob, fileName string) {
	if strings.TrimSpace(extracted.Title) == "" {
		base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		extracted.Title = strings.TrimSpace(base)
	}
	if strings.TrimSpace(extracted.Department) == "" {
		extracted.Department = defaultDepartment
	}
	if strings.TrimSpace(extracted.Location) == "" {
		extracted.Location = defaultLocation
	}
	if strings.TrimSpace(extracted.Type) == "" {
		extracted.Type = defaultType
	}
	if extracted.Skills == nil {
		extracted.Skills = []string{}
	}
}
