// Package main is the entry point for the standalone MCP server binary.
// mcp-server exposes the same MCP Dispatcher (C13) the main repomesh binary
// serves at /mcp, as its own minimal process — for MCP clients (an IDE
// plugin, Claude Desktop, a CI step) that want a dedicated tool endpoint
// without bringing up the full REST surface. It talks to the same Postgres
// database directly rather than proxying through the main API, since
// RepoMesh's tool catalog already sits on the service layer, not behind an
// HTTP client. Grounded on the teacher's cmd/mcp-server/main.go flag/env
// binary split and its waitForShutdown idiom.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/codetools"
	"github.com/RSuyash/repomesh/internal/config"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/mcp"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/store"
	"github.com/RSuyash/repomesh/internal/supervisor"
)

var (
	portFlag      = flag.Int("port", 9090, "MCP server port")
	configFlag    = flag.String("config", "", "optional config file path")
	logLevelFlag  = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormatFlag = flag.String("log-format", "", "log format (console, json)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(getEnvOrFlag("REPOMESH_CONFIG_FILE", *configFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	port := getEnvIntOrFlag("MCP_PORT", *portFlag)
	logLevel := getEnvOrFlag("MCP_LOG_LEVEL", *logLevelFlag)
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	logFormat := getEnvOrFlag("MCP_LOG_FORMAT", *logFormatFlag)
	if logFormat == "" {
		logFormat = cfg.LogFormat
	}

	log := logging.New(logging.Config{Level: logLevel, Format: logFormat})
	logging.SetDefault(log)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer database.Close()

	sysClock := clock.System{}

	agentStore := store.NewAgentStore()
	sessionStore := store.NewSessionStore()
	taskStore := store.NewTaskStore()
	claimStore := store.NewClaimStore()
	lockStore := store.NewLockStore()
	eventStore := store.NewEventStore()
	repoStore := store.NewRepoStore()
	artifactStore := store.NewArtifactStore()

	broker := eventbus.New(log)
	go broker.Run(ctx)

	agents := services.NewAgentService(database, agentStore, sessionStore, sysClock, cfg.SessionTTL())
	tasks := services.NewTaskService(database, taskStore, claimStore, lockStore, sysClock)
	locks := services.NewLockService(database, lockStore, sysClock)
	events := services.NewEventService(database, eventStore, sysClock, broker)
	contextSvc := services.NewContextService(database, taskStore, eventStore, lockStore)
	repos := services.NewRepoService(database, repoStore, sysClock)
	artifacts := services.NewArtifactService(database, artifactStore, taskStore, sysClock)
	orchestratorEngine := services.NewOrchestratorEngine(agents, tasks, events, cfg.SessionTTL())
	summarizer := services.NewSummarizer(database, tasks, events, eventStore)

	adapterPolicy := config.NewRuntimePolicy(cfg.Adapter)
	stopPolicyWatch, err := cfg.WatchAdapterPolicy(adapterPolicy.Update)
	if err != nil {
		log.Error("failed to start adapter policy watch", zap.Error(err))
		os.Exit(1)
	}
	defer stopPolicyWatch()

	adapter := services.NewAdapterService(database, tasks, claimStore, lockStore, events, sysClock,
		cfg.Adapter.WorkspaceRoot, time.Duration(cfg.Adapter.DefaultTimeoutSeconds)*time.Second, adapterPolicy)
	codeTools := codetools.NewService(cfg.Adapter.WorkspaceRoot)

	// This process never autostarts the background loops (it has no REST
	// control surface to stop them with) — the supervisors exist only so the
	// orchestrator.*/adapter.*/summarizer.* tools have a status/tick target.
	orchestratorSupervisor := supervisor.New("orchestrator", func(cycleCtx context.Context) (map[string]int, error) {
		report, err := orchestratorEngine.RunOnce(cycleCtx, cfg.Orchestrator.DispatchLimit)
		if err != nil {
			return nil, err
		}
		return map[string]int{"assigned": len(report.Assigned), "skipped": report.Skipped}, nil
	}, supervisor.FixedInterval(time.Duration(cfg.Orchestrator.PollSeconds)*time.Second), sysClock, log)

	adapterSupervisor := supervisor.New("adapter", func(cycleCtx context.Context) (map[string]int, error) {
		workers, err := agents.List(cycleCtx, nil)
		if err != nil {
			return nil, err
		}
		executed, skipped := 0, 0
		for _, worker := range workers {
			if worker.Status != "active" || worker.Type == "orchestrator" {
				continue
			}
			report, err := adapter.Execute(cycleCtx, worker.ID, "", false, cfg.Adapter.MaxTasksPerAgentCycle)
			if err != nil {
				return nil, err
			}
			executed += len(report.Executed)
			skipped += report.Skipped
		}
		return map[string]int{"executed": executed, "skipped": skipped}, nil
	}, supervisor.FixedInterval(time.Duration(cfg.Adapter.PollSeconds)*time.Second), sysClock, log)

	summarizerSupervisor := supervisor.New("summarizer", func(cycleCtx context.Context) (map[string]int, error) {
		report, err := summarizer.RunOnce(cycleCtx, cfg.Summarizer.MaxTasksCycle)
		if err != nil {
			return nil, err
		}
		return map[string]int{"compressed": report.Compressed, "skipped": report.Skipped}, nil
	}, supervisor.FixedInterval(time.Duration(cfg.Summarizer.PollSeconds)*time.Second), sysClock, log)

	dispatcher, err := mcp.NewDispatcher(&mcp.Dependencies{
		Agents: agents, Tasks: tasks, Locks: locks, Events: events, Context: contextSvc,
		Orchestrator: orchestratorEngine, Adapter: adapter, Summarizer: summarizer, CodeTools: codeTools,
		EventStore: eventStore, Repos: repos, Artifacts: artifacts,
		Supervisors: mcp.Supervisors{
			Orchestrator: orchestratorSupervisor, Adapter: adapterSupervisor, Summarizer: summarizerSupervisor,
		},
	})
	if err != nil {
		log.Error("failed to build mcp dispatcher", zap.Error(err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp/http", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := dispatcher.Dispatch(r.Context(), body)
		if resp.NoBody {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/mcp/tools", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"tools": dispatcher.ToolNames()})
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		log.Info("mcp-server listening", zap.Int("port", port))
		fmt.Printf("RepoMesh MCP server running on :%d\n", port)
		fmt.Printf("JSON-RPC endpoint: http://localhost:%d/mcp/http\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("mcp-server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	waitForShutdown(log, func(shutdownCtx context.Context) {
		cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("mcp-server shutdown error", zap.Error(err))
		}
	})
}

// waitForShutdown blocks for SIGINT/SIGTERM then runs cleanup with a bounded
// timeout, mirroring the teacher's cmd/mcp-server/main.go shutdown helper.
func waitForShutdown(log *logging.Logger, cleanup func(ctx context.Context)) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down mcp-server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cleanup(ctx)
	log.Info("mcp-server stopped")
}

func getEnvOrFlag(envKey, flagValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return flagValue
}

func getEnvIntOrFlag(envKey string, flagValue int) int {
	if v := os.Getenv(envKey); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return flagValue
}
