package queue

import "encoding/json"

// FileRef points at one staged resume in the object store.
type FileRef struct {
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	StorageKey string `json:"storageKey"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// Message is the batch-run payload sent to downstream queue consumers.
// Exactly one of JobID and JobDescriptionKey is set.
type Message struct {
	RunID             string    `json:"runId"`
	RequestID         string    `json:"requestId"`
	JobID             string    `json:"jobId,omitempty"`
	JobDescriptionKey string    `json:"jobDescriptionKey,omitempty"`
	Files             []FileRef `json:"files"`
	EnqueuedAt        string    `json:"enqueuedAt"`
	Version           int       `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
