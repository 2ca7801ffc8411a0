package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"screener-backend/internal/jobcontext"
	"screener-backend/internal/queue"
	"screener-backend/internal/shared/server/respond"
	"screener-backend/internal/shared/storage/object"
	"screener-backend/internal/shared/telemetry"
)

const maxUploadBytes = 10 << 20

// Handler wires HTTP handlers to the batch manager. When a queue client and
// an object store are both configured, submitted runs are handed to the
// worker process instead of executing in this process.
type Handler struct {
	Manager *Manager
	Store   object.ObjectStore
	Queue   queue.Client
}

// NewHandler constructs a Handler.
func NewHandler(manager *Manager, store object.ObjectStore, queueClient queue.Client) *Handler {
	return &Handler{Manager: manager, Store: store, Queue: queueClient}
}

// RegisterRoutes attaches batch routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/batches", h.startBatch)
	rg.GET("/batches/:id", h.getBatch)
	rg.POST("/batches/:id/cancel", h.cancelBatch)
}

func (h *Handler) startBatch(c *gin.Context) {
	requestID := c.GetString("requestId")

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form required", nil)
		return
	}

	resumes := form.File["files"]
	if len(resumes) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "no files selected", nil)
		return
	}

	source, err := h.buildSource(c, form)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	files := make([]FileInput, 0, len(resumes))
	for _, header := range resumes {
		input, err := h.stageUpload(c.Request.Context(), requestID, header)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		files = append(files, input)
	}

	if h.Queue != nil && h.Store != nil {
		ack, err := h.enqueue(c.Request.Context(), requestID, source, files)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to enqueue batch", nil)
			return
		}
		respond.JSON(c, http.StatusAccepted, ack)
		return
	}

	view, err := h.Manager.Start(requestID, source, files)
	if err != nil {
		var validationErr *ValidationError
		switch {
		case errors.As(err, &validationErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", validationErr.Message, nil)
		case errors.Is(err, ErrRunInProgress):
			respond.Error(c, http.StatusConflict, "run_in_progress", "a batch run is already in progress", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start batch", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, view)
}

func (h *Handler) getBatch(c *gin.Context) {
	runID := c.Param("id")
	view, ok := h.Manager.Get(runID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "batch not found", nil)
		return
	}
	respond.JSON(c, http.StatusOK, view)
}

func (h *Handler) cancelBatch(c *gin.Context) {
	runID := c.Param("id")
	if !h.Manager.Cancel(runID) {
		respond.Error(c, http.StatusNotFound, "not_found", "batch not found", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"id": runID, "state": "CANCELING"})
}

func (h *Handler) buildSource(c *gin.Context, form *multipart.Form) (Source, error) {
	jobID := c.PostForm("jobId")
	descriptions := form.File["jobDescription"]

	switch {
	case jobID != "" && len(descriptions) > 0:
		return Source{}, errors.New("jobId and jobDescription are mutually exclusive")
	case jobID != "":
		return Source{JobID: jobID}, nil
	case len(descriptions) == 1:
		doc, err := readUpload(descriptions[0])
		if err != nil {
			return Source{}, err
		}
		return Source{Upload: &jobcontext.UploadedDocument{
			FileName: descriptions[0].Filename,
			MimeType: descriptions[0].Header.Get("Content-Type"),
			Data:     doc,
		}}, nil
	case len(descriptions) > 1:
		return Source{}, errors.New("exactly one job description file is allowed")
	default:
		return Source{}, errors.New("jobId or jobDescription is required")
	}
}

// QueuedRun acknowledges a run handed to the worker process. Queued runs are
// not pollable from this process; the worker reports progress through its own
// telemetry, correlated by id and requestId.
type QueuedRun struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Queued     bool   `json:"queued"`
	Pollable   bool   `json:"pollable"`
	RequestID  string `json:"requestId"`
	Files      int    `json:"files"`
	EnqueuedAt string `json:"enqueuedAt"`
}

// enqueue publishes the run for the worker process.
func (h *Handler) enqueue(ctx context.Context, requestID string, source Source, files []FileInput) (QueuedRun, error) {
	runID := uuid.NewString()

	msg := queue.Message{
		RunID:      runID,
		RequestID:  requestID,
		JobID:      source.JobID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if source.Upload != nil {
		key, _, _, err := h.Store.Save(ctx, "batch-"+requestID, source.Upload.FileName, bytes.NewReader(source.Upload.Data))
		if err != nil {
			return QueuedRun{}, err
		}
		msg.JobDescriptionKey = key
	}
	for _, file := range files {
		msg.Files = append(msg.Files, queue.FileRef{
			FileName:   file.FileName,
			MimeType:   file.MimeType,
			StorageKey: file.StorageKey,
			SizeBytes:  file.SizeBytes,
		})
	}

	if err := h.Queue.Send(ctx, msg); err != nil {
		return QueuedRun{}, err
	}
	telemetry.Info("batch.run.enqueued", map[string]any{
		"request_id": requestID,
		"run_id":     runID,
		"files":      len(files),
	})
	return QueuedRun{
		ID:         runID,
		State:      "QUEUED",
		Queued:     true,
		Pollable:   false,
		RequestID:  requestID,
		Files:      len(files),
		EnqueuedAt: msg.EnqueuedAt,
	}, nil
}

// stageUpload persists the resume to the object store before scheduling so a
// worker process can re-read it later.
func (h *Handler) stageUpload(ctx context.Context, requestID string, header *multipart.FileHeader) (FileInput, error) {
	if header.Size > maxUploadBytes {
		return FileInput{}, errors.New("file too large: " + header.Filename)
	}
	file, err := header.Open()
	if err != nil {
		return FileInput{}, err
	}
	defer file.Close()

	if h.Store == nil {
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			return FileInput{}, err
		}
		return FileInput{
			FileName:  header.Filename,
			MimeType:  header.Header.Get("Content-Type"),
			Data:      data,
			SizeBytes: header.Size,
		}, nil
	}

	key, size, mimeType, err := h.Store.Save(ctx, "batch-"+requestID, header.Filename, file)
	if err != nil {
		return FileInput{}, err
	}
	return FileInput{
		FileName:   header.Filename,
		MimeType:   mimeType,
		StorageKey: key,
		SizeBytes:  size,
	}, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > maxUploadBytes {
		return nil, errors.New("file too large: " + header.Filename)
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
}
