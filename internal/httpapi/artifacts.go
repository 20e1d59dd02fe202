package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/services"
)

type registerArtifactRequest struct {
	TaskID   string         `json:"task_id" binding:"required"`
	Kind     string         `json:"kind" binding:"required"`
	URI      string         `json:"uri" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// RegisterArtifact handles POST /v1/artifacts.
func RegisterArtifact(artifacts *services.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerArtifactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		artifact, err := artifacts.Register(c.Request.Context(), req.TaskID, req.Kind, req.URI, req.Metadata)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, artifact)
	}
}

// ListArtifacts handles GET /v1/tasks/:id/artifacts.
func ListArtifacts(artifacts *services.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := artifacts.ListForTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}
