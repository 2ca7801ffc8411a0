package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"screener-backend/internal/batch"
	"screener-backend/internal/bootstrap"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrInvalidMessage indicates a decoded message that cannot be processed.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	RequestID string
	Reason    string
}

func (e ErrInvalidMessage) Error() string {
	if e.Reason == "" {
		return "invalid message"
	}
	return "invalid message: " + e.Reason
}

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	RunID     string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process batch"
	}
	return "process batch: " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if len(msg.Files) == 0 {
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Reason: "no files"}
	}
	hasJob := strings.TrimSpace(msg.JobID) != ""
	hasUpload := strings.TrimSpace(msg.JobDescriptionKey) != ""
	if hasJob == hasUpload {
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Reason: "exactly one of jobId or jobDescriptionKey is required"}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a batch-run payload.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil || app.Gateway == nil || app.Resolver == nil || app.Persister == nil {
		return errors.New("batch pipeline not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	source, err := buildSource(ctx, app, msg)
	if err != nil {
		return ErrProcess{RunID: msg.RunID, RequestID: msg.RequestID, Err: err}
	}

	files := make([]batch.FileInput, 0, len(msg.Files))
	for _, ref := range msg.Files {
		files = append(files, batch.FileInput{
			FileName:   ref.FileName,
			MimeType:   ref.MimeType,
			StorageKey: ref.StorageKey,
			SizeBytes:  ref.SizeBytes,
		})
	}

	runner := batch.NewRunner(app.Gateway, app.Resolver, app.Persister, app.Store)
	if app.Config.AnalysisDelay > 0 {
		runner.SetDelay(app.Config.AnalysisDelay)
	}
	if _, err := runner.AddFiles(files); err != nil {
		return ErrProcess{RunID: msg.RunID, RequestID: msg.RequestID, Err: err}
	}
	if _, err := runner.Run(ctx, msg.RequestID, source); err != nil {
		return ErrProcess{RunID: msg.RunID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

func buildSource(ctx context.Context, app *bootstrap.App, msg queue.Message) (batch.Source, error) {
	if strings.TrimSpace(msg.JobID) != "" {
		return batch.Source{JobID: msg.JobID}, nil
	}
	if app.Store == nil {
		return batch.Source{}, errors.New("object store not configured")
	}
	body, err := app.Store.Open(ctx, msg.JobDescriptionKey)
	if err != nil {
		return batch.Source{}, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return batch.Source{}, err
	}
	return batch.Source{Upload: &jobcontext.UploadedDocument{
		FileName: msg.JobDescriptionKey,
		Data:     data,
	}}, nil
}
