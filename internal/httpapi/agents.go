package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/services"
)

type registerAgentRequest struct {
	Name            string         `json:"name" binding:"required"`
	Type            string         `json:"type" binding:"required"`
	Capabilities    map[string]any `json:"capabilities"`
	RepoID          *string        `json:"repo_id"`
	ReuseExisting   bool           `json:"reuse_existing"`
	TakeoverIfStale bool           `json:"takeover_if_stale"`
}

type heartbeatRequest struct {
	Status      string  `json:"status" binding:"required"`
	CurrentTask *string `json:"current_task"`
}

func agentToResponse(a *model.Agent) gin.H {
	return gin.H{
		"id": a.ID, "repo_id": a.RepoID, "name": a.Name, "type": a.Type, "status": a.Status,
		"capabilities": a.Capabilities, "last_heartbeat_at": a.LastHeartbeatAt,
		"created_at": a.CreatedAt, "updated_at": a.UpdatedAt,
	}
}

// RegisterAgent handles POST /v1/agents/register.
func RegisterAgent(agents *services.AgentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerAgentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		agent, err := agents.Register(c.Request.Context(), services.RegisterOptions{
			Name: req.Name, Type: req.Type, Capabilities: req.Capabilities, RepoID: req.RepoID,
			ReuseExisting: req.ReuseExisting, TakeoverIfStale: req.TakeoverIfStale,
		})
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, agentToResponse(agent))
	}
}

// Heartbeat handles POST /v1/agents/{id}/heartbeat.
func Heartbeat(agents *services.AgentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := c.Param("id")
		var req heartbeatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		agent, err := agents.Heartbeat(c.Request.Context(), agentID, req.Status, req.CurrentTask)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, agentToResponse(agent))
	}
}

// ListAgents handles GET /v1/agents.
func ListAgents(agents *services.AgentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var repoID *string
		if v := c.Query("repo_id"); v != "" {
			repoID = &v
		}
		list, err := agents.List(c.Request.Context(), repoID)
		if err != nil {
			WriteError(c, err)
			return
		}
		items := make([]gin.H, 0, len(list))
		for _, a := range list {
			items = append(items, agentToResponse(a))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}
