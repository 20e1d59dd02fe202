package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/services"
)

// Reconcile handles POST /v1/recovery/reconcile: the operator-triggered
// sweep of stale sessions and stale claims, independent of whatever cadence
// the Orchestrator's own supervisor or the cron janitor run on.
func Reconcile(agents *services.AgentService, tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		staleSessions, err := agents.MarkStaleSessions(c.Request.Context())
		if err != nil {
			WriteError(c, err)
			return
		}
		staleClaims, err := tasks.ExpireStaleClaims(c.Request.Context(), "")
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stale_sessions": staleSessions, "stale_claims": staleClaims})
	}
}
