package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/mcp"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/supervisor"
)

// Supervisors groups the three Runtime Supervisors the control routes
// start/stop/tick/report on.
type Supervisors struct {
	Orchestrator *supervisor.Supervisor
	Adapter      *supervisor.Supervisor
	Summarizer   *supervisor.Supervisor
}

// Dependencies is every collaborator the router wires into its handlers.
type Dependencies struct {
	Agents       *services.AgentService
	Tasks        *services.TaskService
	Locks        *services.LockService
	Events       *services.EventService
	Context      *services.ContextService
	Adapter      *services.AdapterService
	Repos        *services.RepoService
	Artifacts    *services.ArtifactService
	Broker       *eventbus.Broker
	Supervisors  Supervisors
	MCP          *mcp.Dispatcher
	AuthToken    string
}

// NewRouter builds the full gin engine per spec.md section 6's HTTP surface
// table, grounded on the teacher's internal/orchestrator/api router/handler
// split (one SetupRoutes-style function per resource group, mounted under a
// shared middleware chain).
func NewRouter(appCtx context.Context, deps Dependencies, log *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RequestLogger(log), Recovery(log))

	v1 := router.Group("/v1")
	v1.Use(Auth(deps.AuthToken))
	{
		v1.POST("/agents/register", RegisterAgent(deps.Agents))
		v1.POST("/agents/:id/heartbeat", Heartbeat(deps.Agents))
		v1.GET("/agents", ListAgents(deps.Agents))

		v1.POST("/tasks", CreateTask(deps.Tasks))
		v1.GET("/tasks", ListTasks(deps.Tasks))
		v1.POST("/tasks/:id/claim", ClaimTask(deps.Tasks))
		v1.PATCH("/tasks/:id", UpdateTask(deps.Tasks))

		v1.POST("/locks/acquire", AcquireLock(deps.Locks))
		v1.POST("/locks/:id/renew", RenewLock(deps.Locks))
		v1.POST("/locks/:id/release", ReleaseLock(deps.Locks))

		v1.POST("/events", LogEvent(deps.Events))
		v1.GET("/events", ListEvents(deps.Events))
		v1.GET("/events/thread/:id", EventThread(deps.Events))
		v1.GET("/events/sse", EventsSSE(deps.Broker))
		v1.GET("/events/ws", EventsWS(deps.Broker, log))

		v1.GET("/context/bundle/:task_id", ContextBundle(deps.Context))

		v1.POST("/repos", RegisterRepo(deps.Repos))
		v1.GET("/repos/:id", GetRepo(deps.Repos))

		v1.POST("/artifacts", RegisterArtifact(deps.Artifacts))
		v1.GET("/tasks/:id/artifacts", ListArtifacts(deps.Artifacts))

		v1.POST("/recovery/reconcile", Reconcile(deps.Agents, deps.Tasks))

		v1.POST("/orchestrator/start", SupervisorStart(appCtx, deps.Supervisors.Orchestrator))
		v1.POST("/orchestrator/stop", SupervisorStop(deps.Supervisors.Orchestrator))
		v1.POST("/orchestrator/tick", SupervisorTick(deps.Supervisors.Orchestrator))
		v1.GET("/orchestrator/status", SupervisorStatus(deps.Supervisors.Orchestrator))

		v1.POST("/adapters/start", SupervisorStart(appCtx, deps.Supervisors.Adapter))
		v1.POST("/adapters/stop", SupervisorStop(deps.Supervisors.Adapter))
		v1.POST("/adapters/tick", SupervisorTick(deps.Supervisors.Adapter))
		v1.POST("/adapters/execute", AdapterExecute(deps.Adapter))
		v1.GET("/adapters/status", SupervisorStatus(deps.Supervisors.Adapter))

		v1.POST("/summarizer/start", SupervisorStart(appCtx, deps.Supervisors.Summarizer))
		v1.POST("/summarizer/stop", SupervisorStop(deps.Supervisors.Summarizer))
		v1.POST("/summarizer/tick", SupervisorTick(deps.Supervisors.Summarizer))
		v1.GET("/summarizer/status", SupervisorStatus(deps.Supervisors.Summarizer))
	}

	mcpGroup := router.Group("/mcp")
	mcpGroup.Use(Auth(deps.AuthToken))
	{
		mcpGroup.POST("/http", MCPHTTP(deps.MCP))
		mcpGroup.GET("/tools", MCPTools(deps.MCP))
	}

	return router
}
