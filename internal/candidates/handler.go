package candidates

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screener-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the candidates repository.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches candidate routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs/:id/candidates", h.listByJob)
}

func (h *Handler) listByJob(c *gin.Context) {
	found, err := h.Repo.FindByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list candidates", nil)
		return
	}
	if found == nil {
		found = []Candidate{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"candidates": found})
}
