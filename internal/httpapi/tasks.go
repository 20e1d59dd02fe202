package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/services"
)

type createTaskRequest struct {
	Goal               string         `json:"goal" binding:"required"`
	Description        string         `json:"description"`
	Scope              map[string]any `json:"scope"`
	Priority           int            `json:"priority"`
	AcceptanceCriteria *string        `json:"acceptance_criteria"`
	RepoID             *string        `json:"repo_id"`
}

type claimTaskRequest struct {
	AgentID     string `json:"agent_id" binding:"required"`
	ResourceKey string `json:"resource_key" binding:"required"`
	LeaseTTL    int    `json:"lease_ttl"`
}

type updateTaskRequest struct {
	Status        *string `json:"status"`
	Progress      *int    `json:"progress"`
	Summary       *string `json:"summary"`
	BlockedReason *string `json:"blocked_reason"`
}

func taskToResponse(t *model.Task) gin.H {
	return gin.H{
		"id": t.ID, "repo_id": t.RepoID, "goal": t.Goal, "description": t.Description,
		"scope": t.Scope, "priority": t.Priority, "status": t.Status,
		"acceptance_criteria": t.AcceptanceCriteria, "assignee_agent_id": t.AssigneeAgentID,
		"blocked_reason": t.BlockedReason, "progress": t.Progress, "summary": t.Summary,
		"created_at": t.CreatedAt, "updated_at": t.UpdatedAt,
	}
}

// CreateTask handles POST /v1/tasks.
func CreateTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		task, err := tasks.Create(c.Request.Context(), services.CreateInput{
			Goal: req.Goal, Description: req.Description, Scope: req.Scope, Priority: req.Priority,
			AcceptanceCriteria: req.AcceptanceCriteria, RepoID: req.RepoID,
		})
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, taskToResponse(task))
	}
}

// ListTasks handles GET /v1/tasks?status=&scope=&assignee=.
func ListTasks(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := tasks.List(c.Request.Context(), c.Query("status"), c.Query("scope"), c.Query("assignee"))
		if err != nil {
			WriteError(c, err)
			return
		}
		items := make([]gin.H, 0, len(list))
		for _, t := range list {
			items = append(items, taskToResponse(t))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// ClaimTask handles POST /v1/tasks/{id}/claim.
func ClaimTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		var req claimTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		leaseTTL := req.LeaseTTL
		if leaseTTL <= 0 {
			leaseTTL = 1800
		}
		claim, err := tasks.Claim(c.Request.Context(), taskID, req.AgentID, req.ResourceKey, leaseTTL)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id": claim.ID, "task_id": claim.TaskID, "agent_id": claim.AgentID,
			"resource_key": claim.ResourceKey, "state": claim.State,
			"claimed_at": claim.ClaimedAt, "expires_at": claim.ExpiresAt,
		})
	}
}

// UpdateTask handles PATCH /v1/tasks/{id}.
func UpdateTask(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		task, err := tasks.Update(c.Request.Context(), taskID, services.UpdateInput{
			Status: req.Status, Progress: req.Progress, Summary: req.Summary, BlockedReason: req.BlockedReason,
		})
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, taskToResponse(task))
	}
}
