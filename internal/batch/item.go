package batch

import (
	"screener-backend/internal/shared/util"
)

// Status is an upload item's position in the processing state machine.
type Status string

const (
	StatusReady     Status = "READY"
	StatusReading   Status = "READING"
	StatusParsing   Status = "PARSING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// Terminal reports whether the status ends a run for the item.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// FileInput is one resume file handed to intake.
type FileInput struct {
	FileName   string
	MimeType   string
	Data       []byte
	StorageKey string
	SizeBytes  int64
}

// Item is one resume tracked through a batch run.
type Item struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
	SizeLabel  string `json:"sizeLabel"`
	StorageKey string `json:"-"`
	Data       []byte `json:"-"`
	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
}

func newItem(id string, file FileInput) *Item {
	size := file.SizeBytes
	if size == 0 {
		size = int64(len(file.Data))
	}
	name, err := util.SanitizeFileName(file.FileName)
	if err != nil {
		name = "unnamed"
	}
	return &Item{
		ID:         id,
		FileName:   name,
		MimeType:   file.MimeType,
		SizeBytes:  size,
		SizeLabel:  util.HumanSize(size),
		StorageKey: file.StorageKey,
		Data:       file.Data,
		Status:     StatusReady,
		Progress:   0,
	}
}

func (i *Item) setStatus(status Status, progress int) {
	i.Status = status
	i.Progress = progress
	if status != StatusError {
		i.Error = ""
	}
}

func (i *Item) snapshot() Item {
	copied := *i
	copied.Data = nil
	return copied
}
