package candidates

import (
	"encoding/json"
	"time"
)

// Candidate is one scored applicant persisted against a job.
type Candidate struct {
	ID           string          `json:"id"`
	JobID        string          `json:"jobId"`
	Name         string          `json:"name"`
	CurrentRole  string          `json:"currentRole"`
	MatchScore   int             `json:"matchScore"`
	Scores       json.RawMessage `json:"scores"`
	DeepAnalysis json.RawMessage `json:"deepAnalysis,omitempty"`
	FileName     string          `json:"fileName"`
	SourceKey    string          `json:"-"`
	DocumentData []byte          `json:"-"`
	AppliedDate  time.Time       `json:"appliedDate"`
	CreatedAt    time.Time       `json:"createdAt"`
}
