package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/mcp"
)

// MCPHTTP handles POST /mcp/http: the JSON-RPC 2.0 transport for the MCP
// Dispatcher (C13). Grounded on the Python original's mcp/http.py route,
// which is a thin decode/dispatch/encode wrapper with no gin-specific logic
// of its own.
func MCPHTTP(dispatcher *mcp.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		resp := dispatcher.Dispatch(c.Request.Context(), body)
		if resp.NoBody {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// MCPTools handles GET /mcp/tools: the plain tool-name listing.
func MCPTools(dispatcher *mcp.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tools": dispatcher.ToolNames()})
	}
}
