// Package main is the entry point for the RepoMesh control plane: the HTTP
// API, the MCP dispatcher, and the three Runtime Supervisors, all composed
// against one Postgres-backed service layer. Grounded on the teacher's
// cmd/kandev/main.go composition root (config → logger → context → db →
// services → routers → listen → signal-wait → graceful shutdown), adapted
// to spec.md's simpler single-process shape (no NATS, no ACP).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/codetools"
	"github.com/RSuyash/repomesh/internal/config"
	"github.com/RSuyash/repomesh/internal/cronjanitor"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/httpapi"
	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/mcp"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/store"
	"github.com/RSuyash/repomesh/internal/supervisor"
	"github.com/RSuyash/repomesh/internal/tracing"
)

func main() {
	cfg, err := config.Load(os.Getenv("REPOMESH_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetDefault(log)
	defer log.Sync()

	log.Info("starting repomesh control plane")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, "repomesh", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracing setup failed, continuing without it", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer database.Close()
	log.Info("connected to postgres")

	if err := database.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap database schema", zap.Error(err))
		os.Exit(1)
	}

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

	orchestratorSupervisor := supervisor.New("orchestrator", func(cycleCtx context.Context) (map[string]int, error) {
		report, err := orchestratorEngine.RunOnce(cycleCtx, cfg.Orchestrator.DispatchLimit)
		if err != nil {
			return nil, err
		}
		return map[string]int{"assigned": len(report.Assigned), "skipped": report.Skipped}, nil
	}, supervisor.BrokerOrTimeout(broker, "orchestration", time.Duration(cfg.Orchestrator.PollSeconds)*time.Second), sysClock, log)

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

	if cfg.Orchestrator.Autostart {
		orchestratorSupervisor.Start(ctx)
	}
	if cfg.Adapter.Autostart {
		adapterSupervisor.Start(ctx)
	}
	if cfg.Summarizer.Autostart {
		summarizerSupervisor.Start(ctx)
	}

	var janitor *cronjanitor.Janitor
	if cfg.ReconcileCron != "" {
		janitor, err = cronjanitor.New(cfg.ReconcileCron, func(cycleCtx context.Context) (int, int, error) {
			staleSessions, err := agents.MarkStaleSessions(cycleCtx)
			if err != nil {
				return 0, 0, err
			}
			staleClaims, err := tasks.ExpireStaleClaims(cycleCtx, "")
			if err != nil {
				return staleSessions, 0, err
			}
			return staleSessions, staleClaims, nil
		}, log)
		if err != nil {
			log.Error("failed to start cron janitor", zap.Error(err))
			os.Exit(1)
		}
		janitor.Start()
	}

	codeTools := codetools.NewService(cfg.Adapter.WorkspaceRoot)

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

	router := httpapi.NewRouter(ctx, httpapi.Dependencies{
		Agents: agents, Tasks: tasks, Locks: locks, Events: events, Context: contextSvc, Adapter: adapter,
		Repos: repos, Artifacts: artifacts, Broker: broker,
		Supervisors: httpapi.Supervisors{
			Orchestrator: orchestratorSupervisor, Adapter: adapterSupervisor, Summarizer: summarizerSupervisor,
		},
		MCP: dispatcher, AuthToken: cfg.LocalToken,
	}, log)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort), Handler: router}

	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down repomesh control plane")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	orchestratorSupervisor.Stop()
	adapterSupervisor.Stop()
	summarizerSupervisor.Stop()
	if janitor != nil {
		janitor.Stop()
	}

	log.Info("repomesh control plane stopped")
}
