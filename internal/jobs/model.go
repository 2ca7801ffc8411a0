package jobs

import "time"

// Job is a stored job posting that resumes are scored against.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Department  string    `json:"department"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Skills      []string  `json:"skills"`
	Applicants  int       `json:"applicants"`
	HighMatches int       `json:"highMatches"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Update carries partial fields for UpdateOne; nil fields are left unchanged.
type Update struct {
	Title       *string
	Department  *string
	Location    *string
	Type        *string
	Description *string
	Skills      *[]string
	Applicants  *int
	HighMatches *int
}

// IsEmpty reports whether the update carries no fields.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Department == nil && u.Location == nil &&
		u.Type == nil && u.Description == nil && u.Skills == nil &&
		u.Applicants == nil && u.HighMatches == nil
}
