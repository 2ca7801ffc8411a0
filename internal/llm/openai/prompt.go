package openai

import (
	"fmt"
	"strings"

	"screener-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPromptAnalyze = "You are a resume screening engine. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."
	systemPromptExtract = "You are a job description parser. Respond with JSON only. No markdown. Output must match the schema exactly."
	systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
)

const analyzeSchemaPrompt = `Score the resume against the job requirements.
Return a JSON object with exactly these keys:
{
  "candidateName": "string",
  "currentRole": "string",
  "matchScore": "integer 0-100, overall fit",
  "jobDescriptionMatch": {"score": "integer 0-100", "justification": "one line"},
  "qualificationMatch": {"score": "integer 0-100", "justification": "one line"},
  "resumeQualityMatch": {"score": "integer 0-100", "justification": "one line"},
  "candidateRecordMatch": {"score": "integer 0-100", "justification": "one line"},
  "deepAnalysis": {
    "summary": "string",
    "strengths": ["string"],
    "weaknesses": ["string"],
    "missingSkills": ["string"],
    "matchedSkills": ["string"],
    "interviewQuestions": ["string"],
    "experienceLevel": "Junior | Mid | Senior | Lead",
    "roleFitLevel": "Low | Medium | High",
    "culturalFit": "one line"
  }
}`

const extractSchemaPrompt = `Extract the job posting fields from the document.
Return a JSON object with exactly these keys:
{
  "title": "string",
  "department": "string",
  "location": "string",
  "type": "Full-time | Part-time | Contract | Internship",
  "skills": ["string"]
}
Leave a key as an empty string or empty array when the document does not state it.`

// BuildAnalyzePrompt creates the chat messages for a resume scoring request.
func BuildAnalyzePrompt(input llm.AnalyzeInput) []Message {
	return []Message{
		{Role: "system", Content: systemPromptAnalyze},
		{Role: "developer", Content: analyzeSchemaPrompt},
		{Role: "user", Content: buildAnalyzeUserPrompt(input)},
	}
}

// BuildExtractPrompt creates the chat messages for a job-description extraction request.
func BuildExtractPrompt(input llm.ExtractInput) []Message {
	return []Message{
		{Role: "system", Content: systemPromptExtract},
		{Role: "developer", Content: extractSchemaPrompt},
		{Role: "user", Content: "Job Description Document:\n" + input.DocumentText},
	}
}

func buildFixPrompt(schema string, raw []byte) []Message {
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "developer", Content: schema},
		{Role: "user", Content: fmt.Sprintf("Fix this JSON to match the schema exactly. Output JSON only:\n%s", string(raw))},
	}
}

func buildAnalyzeUserPrompt(input llm.AnalyzeInput) string {
	skills := "N/A"
	if len(input.JobSkills) > 0 {
		skills = strings.Join(input.JobSkills, ", ")
	}
	jd := input.JobDescription
	if strings.TrimSpace(jd) == "" {
		jd = "N/A"
	}
	return fmt.Sprintf("Job Title:\n%s\n\nRequired Skills:\n%s\n\nJob Description:\n%s\n\nResume Text:\n%s",
		input.JobTitle, skills, jd, input.ResumeText)
}

func prependSystemMessage(messages []Message, content string) []Message {
	if strings.TrimSpace(content) == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: content})
	out = append(out, messages...)
	return out
}
