package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SubScore is one scored dimension with the model's justification.
type SubScore struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// DeepAnalysis carries the narrative portion of a scoring result.
type DeepAnalysis struct {
	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	MissingSkills      []string `json:"missingSkills"`
	MatchedSkills      []string `json:"matchedSkills"`
	InterviewQuestions []string `json:"interviewQuestions"`
	ExperienceLevel    string   `json:"experienceLevel"`
	RoleFitLevel       string   `json:"roleFitLevel"`
	CulturalFit        string   `json:"culturalFit"`
}

// Result is the validated scoring output for one resume.
type Result struct {
	CandidateName        string       `json:"candidateName"`
	CurrentRole          string       `json:"currentRole"`
	MatchScore           int          `json:"matchScore"`
	JobDescriptionMatch  SubScore     `json:"jobDescriptionMatch"`
	QualificationMatch   SubScore     `json:"qualificationMatch"`
	ResumeQualityMatch   SubScore     `json:"resumeQualityMatch"`
	CandidateRecordMatch *SubScore    `json:"candidateRecordMatch,omitempty"`
	DeepAnalysis         DeepAnalysis `json:"deepAnalysis"`
}

// Validate checks basic schema constraints.
func (r *Result) Validate() error {
	if r == nil {
		return errors.New("analysis result is nil")
	}
	if strings.TrimSpace(r.CandidateName) == "" {
		return errors.New("candidateName is required")
	}
	if r.MatchScore < 0 || r.MatchScore > 100 {
		return errors.New("matchScore must be between 0 and 100")
	}
	for _, sub := range []struct {
		name  string
		value SubScore
	}{
		{name: "jobDescriptionMatch", value: r.JobDescriptionMatch},
		{name: "qualificationMatch", value: r.QualificationMatch},
		{name: "resumeQualityMatch", value: r.ResumeQualityMatch},
	} {
		if sub.value.Score < 0 || sub.value.Score > 100 {
			return fmt.Errorf("%s.score must be between 0 and 100", sub.name)
		}
	}
	return nil
}

// Normalize clamps scores and replaces nil lists with empty slices so the
// persisted JSON never carries null arrays.
func (r *Result) Normalize() {
	r.MatchScore = clampScore(r.MatchScore)
	r.JobDescriptionMatch.Score = clampScore(r.JobDescriptionMatch.Score)
	r.QualificationMatch.Score = clampScore(r.QualificationMatch.Score)
	r.ResumeQualityMatch.Score = clampScore(r.ResumeQualityMatch.Score)
	if r.CandidateRecordMatch != nil {
		r.CandidateRecordMatch.Score = clampScore(r.CandidateRecordMatch.Score)
	}
	if r.DeepAnalysis.Strengths == nil {
		r.DeepAnalysis.Strengths = []string{}
	}
	if r.DeepAnalysis.Weaknesses == nil {
		r.DeepAnalysis.Weaknesses = []string{}
	}
	if r.DeepAnalysis.MissingSkills == nil {
		r.DeepAnalysis.MissingSkills = []string{}
	}
	if r.DeepAnalysis.MatchedSkills == nil {
		r.DeepAnalysis.MatchedSkills = []string{}
	}
	if r.DeepAnalysis.InterviewQuestions == nil {
		r.DeepAnalysis.InterviewQuestions = []string{}
	}
}

// ScoresJSON encodes the per-dimension scores for persistence.
func (r *Result) ScoresJSON() (json.RawMessage, error) {
	scores := map[string]SubScore{
		"jobDescriptionMatch": r.JobDescriptionMatch,
		"qualificationMatch":  r.QualificationMatch,
		"resumeQualityMatch":  r.ResumeQualityMatch,
	}
	if r.CandidateRecordMatch != nil {
		scores["candidateRecordMatch"] = *r.CandidateRecordMatch
	}
	return json.Marshal(scores)
}

// DeepAnalysisJSON encodes the narrative portion for persistence.
func (r *Result) DeepAnalysisJSON() (json.RawMessage, error) {
	return json.Marshal(r.DeepAnalysis)
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
