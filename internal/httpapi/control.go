package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/supervisor"
)

// SupervisorStart handles POST /v1/{orchestrator,adapters,summarizer}/start.
// appCtx is the server's own lifetime context; the supervisor's background
// loop runs until that context is cancelled or Stop is called explicitly.
func SupervisorStart(appCtx context.Context, sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		sup.Start(appCtx)
		c.JSON(http.StatusOK, sup.GetStatus())
	}
}

// SupervisorStop handles POST /v1/{orchestrator,adapters,summarizer}/stop.
func SupervisorStop(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		sup.Stop()
		c.JSON(http.StatusOK, sup.GetStatus())
	}
}

// SupervisorTick handles POST /v1/{orchestrator,adapters,summarizer}/tick:
// runs one cycle synchronously regardless of whether the background loop is
// also active (spec.md section 4.13: "safe to call concurrently").
func SupervisorTick(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sup.RunOnceSync(c.Request.Context()); err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, sup.GetStatus())
	}
}

// SupervisorStatus handles GET /v1/{orchestrator,adapters,summarizer}/status.
func SupervisorStatus(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sup.GetStatus())
	}
}

type adapterExecuteRequest struct {
	AgentID  string `json:"agent_id" binding:"required"`
	TaskID   string `json:"task_id"`
	DryRun   bool   `json:"dry_run"`
	MaxTasks int    `json:"max_tasks"`
}

// AdapterExecute handles POST /v1/adapters/execute: the one adapter control
// route that isn't a generic supervisor lifecycle call — it drives the
// AdapterService directly, outside the supervisor's own fixed-interval
// cadence (spec.md section 6).
func AdapterExecute(adapter *services.AdapterService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adapterExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		maxTasks := req.MaxTasks
		if maxTasks <= 0 {
			maxTasks = 5
		}
		report, err := adapter.Execute(c.Request.Context(), req.AgentID, req.TaskID, req.DryRun, maxTasks)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
