package jobs

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"screener-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the jobs repository.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.getJob)
	rg.POST("/jobs", h.createJob)
}

func (h *Handler) listJobs(c *gin.Context) {
	found, err := h.Repo.Find(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	if found == nil {
		found = []Job{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"jobs": found})
}

func (h *Handler) getJob(c *gin.Context) {
	job, err := h.Repo.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load job", nil)
		return
	}
	respond.JSON(c, http.StatusOK, job)
}

type createJobRequest struct {
	Title       string   `json:"title"`
	Department  string   `json:"department"`
	Location    string   `json:"location"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

func (h *Handler) createJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "title is required", nil)
		return
	}
	if req.Skills == nil {
		req.Skills = []string{}
	}

	job := Job{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Department:  req.Department,
		Location:    req.Location,
		Type:        req.Type,
		Description: req.Description,
		Skills:      req.Skills,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Repo.InsertOne(c.Request.Context(), job); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create job", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, job)
}
