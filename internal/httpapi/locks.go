package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/services"
)

type acquireLockRequest struct {
	ResourceKey string `json:"resource_key" binding:"required"`
	AgentID     string `json:"agent_id" binding:"required"`
	TTL         int    `json:"ttl"`
}

type renewLockRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
	TTL     int    `json:"ttl"`
}

type releaseLockRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

func lockToResponse(l *model.ResourceLock) gin.H {
	return gin.H{
		"id": l.ID, "resource_key": l.ResourceKey, "owner_agent_id": l.OwnerAgentID, "state": l.State,
		"created_at": l.CreatedAt, "expires_at": l.ExpiresAt, "released_at": l.ReleasedAt,
	}
}

// AcquireLock handles POST /v1/locks/acquire.
func AcquireLock(locks *services.LockService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req acquireLockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		ttl := req.TTL
		if ttl <= 0 {
			ttl = 1800
		}
		lock, err := locks.Acquire(c.Request.Context(), req.ResourceKey, req.AgentID, ttl)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, lockToResponse(lock))
	}
}

// RenewLock handles POST /v1/locks/{id}/renew.
func RenewLock(locks *services.LockService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lockID := c.Param("id")
		var req renewLockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		ttl := req.TTL
		if ttl <= 0 {
			ttl = 1800
		}
		lock, err := locks.Renew(c.Request.Context(), lockID, req.AgentID, ttl)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, lockToResponse(lock))
	}
}

// ReleaseLock handles POST /v1/locks/{id}/release.
func ReleaseLock(locks *services.LockService) gin.HandlerFunc {
	return func(c *gin.Context) {
		lockID := c.Param("id")
		var req releaseLockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, apperr.Validation(err.Error(), nil))
			return
		}
		lock, err := locks.Release(c.Request.Context(), lockID, req.AgentID)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, lockToResponse(lock))
	}
}
