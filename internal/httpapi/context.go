package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/services"
)

// ContextBundle handles GET /v1/context/bundle/{task_id}?mode=&include_recent=.
func ContextBundle(ctxSvc *services.ContextService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("task_id")
		mode := c.DefaultQuery("mode", "compact")
		includeRecent := c.DefaultQuery("include_recent", "true") == "true"

		bundle, err := ctxSvc.Bundle(c.Request.Context(), taskID, mode, includeRecent)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, bundle)
	}
}
