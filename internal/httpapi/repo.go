package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/services"
)

type registerRepoRequest struct {
	Name          string `json:"name" binding:"required"`
	RootPath      string `json:"root_path" binding:"required"`
	DefaultBranch string `json:"default_branch"`
}

// RegisterRepo handles POST /v1/repos.
func RegisterRepo(repos *services.RepoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRepoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		repo, err := repos.Register(c.Request.Context(), req.Name, req.RootPath, req.DefaultBranch)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, repo)
	}
}

// GetRepo handles GET /v1/repos/:id.
func GetRepo(repos *services.RepoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		repo, err := repos.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, repo)
	}
}
