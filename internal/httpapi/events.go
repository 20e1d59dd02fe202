package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/store"
)

type logEventRequest struct {
	Type            string         `json:"type" binding:"required"`
	Payload         map[string]any `json:"payload"`
	Severity        string         `json:"severity"`
	TaskID          *string        `json:"task_id"`
	AgentID         *string        `json:"agent_id"`
	RepoID          *string        `json:"repo_id"`
	RecipientID     *string        `json:"recipient_id"`
	ParentMessageID *string        `json:"parent_message_id"`
	Channel         string         `json:"channel"`
}

func eventToResponse(e *model.Event) gin.H {
	return gin.H{
		"id": e.ID, "repo_id": e.RepoID, "agent_id": e.AgentID, "task_id": e.TaskID,
		"recipient_id": e.RecipientID, "parent_message_id": e.ParentMessageID, "channel": e.Channel,
		"type": e.Type, "severity": e.Severity, "payload": e.Payload, "created_at": e.CreatedAt,
	}
}

// LogEvent handles POST /v1/events.
func LogEvent(events *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req logEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		event, err := events.Log(c.Request.Context(), services.LogInput{
			Type: req.Type, Payload: req.Payload, Severity: req.Severity, TaskID: req.TaskID,
			AgentID: req.AgentID, RepoID: req.RepoID, RecipientID: req.RecipientID,
			ParentMessageID: req.ParentMessageID, Channel: req.Channel,
		})
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, eventToResponse(event))
	}
}

func parseQueryTimestamp(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("invalid ISO-8601 timestamp", map[string]any{"field": key, "value": raw})
	}
	return &t, nil
}

// ListEvents handles GET /v1/events.
func ListEvents(events *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, err := parseQueryTimestamp(c, "since")
		if err != nil {
			WriteError(c, err)
			return
		}
		before, err := parseQueryTimestamp(c, "before")
		if err != nil {
			WriteError(c, err)
			return
		}
		list, err := events.List(c.Request.Context(), store.ListFilters{
			TaskID: c.Query("task_id"), AgentID: c.Query("agent_id"), Type: c.Query("type"),
			RecipientID: c.Query("recipient_id"), Channel: c.Query("channel"),
			IncludeBroadcast: c.Query("include_broadcast") == "true",
			Since:            since, Before: before, Direction: c.Query("direction"),
			Limit: queryInt(c, "limit", 100),
		})
		if err != nil {
			WriteError(c, err)
			return
		}
		items := make([]gin.H, 0, len(list))
		for _, e := range list {
			items = append(items, eventToResponse(e))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// EventThread handles GET /v1/events/thread/{id}.
func EventThread(events *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("id")
		list, err := events.Thread(c.Request.Context(), messageID, queryInt(c, "limit", 50))
		if err != nil {
			WriteError(c, err)
			return
		}
		items := make([]gin.H, 0, len(list))
		for _, e := range list {
			items = append(items, eventToResponse(e))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
