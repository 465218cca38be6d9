// Command wayfarer runs a single autonomous browser task end to end: load
// configuration, wire the model client, tool registry, and orchestration
// core, drive the task, and print the final summary.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odvcencio/wayfarer/pkg/agent"
	"github.com/odvcencio/wayfarer/pkg/config"
	"github.com/odvcencio/wayfarer/pkg/coordination/pubsub"
	"github.com/odvcencio/wayfarer/pkg/logging"
	"github.com/odvcencio/wayfarer/pkg/mcp"
	"github.com/odvcencio/wayfarer/pkg/model"
	"github.com/odvcencio/wayfarer/pkg/narrator"
	"github.com/odvcencio/wayfarer/pkg/telemetry"
	"github.com/odvcencio/wayfarer/pkg/tool"
)

func main() {
	var (
		task         = flag.String("task", "", "the task to run (required)")
		configPath   = flag.String("config", "", "path to a YAML config file, defaults to the built-in defaults")
		sessionID    = flag.String("session", "", "browser session id to treat as the current tab")
		logDir       = flag.String("log-dir", "./logs", "directory structured run logs are written under")
		metricsAddr  = flag.String("metrics-addr", "", "address to serve Prometheus /metrics on, empty disables it")
		modelBaseURL = flag.String("model-base-url", "", "override the model provider's base URL")
		modelID      = flag.String("model", "anthropic/claude-3.5-sonnet", "OpenRouter model id to drive the run with")
		pluginsDir   = flag.String("plugins-dir", "", "extra directory to scan for external tool.yaml plugins, beyond the standard ~/.wayfarer/plugins and ./plugins locations")
		validateKey  = flag.Bool("validate-key", false, "check WAYFARER_MODEL_API_KEY against the catalog and a minimal completion, then exit without running a task")
	)
	flag.Parse()

	rawClient := model.NewClient(os.Getenv("WAYFARER_MODEL_API_KEY"), *modelBaseURL)

	if *validateKey {
		if err := rawClient.ValidateAPIKey(); err != nil {
			fmt.Fprintf(os.Stderr, "API key invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("API key is valid.")
		return
	}

	if strings.TrimSpace(*task) == "" {
		fmt.Fprintln(os.Stderr, "Error: -task is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg)
	}

	tp, err := telemetry.NewTracerProvider(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting tracer: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sid := strings.TrimSpace(*sessionID)
	if sid == "" {
		sid = "cli"
	}
	logger, err := logging.NewLogger(*logDir, sid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening logs: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	n := narrator.New(pubsub.NewInMemoryPubSub())
	client := model.NewOpenRouterModelClient(rawClient, *modelID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	registry := tool.NewRegistry()
	tool.RegisterDomainTools(registry, tool.Deps{
		Client: client,
		// HumanInput is a startup placeholder only: Agent.Run rebinds
		// human_input_tool's Provider to the per-task ExecutionContext
		// before routing to a strategy, so every real call goes through
		// the async gate (narrator request, polled resolution, timeout)
		// rather than this blocking stdin reader.
		HumanInput: terminalHumanInput{},
	})

	if mcpManager, mcpErr := mcp.ManagerFromConfig(ctx, cfg.MCP); mcpErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: mcp setup: %v\n", mcpErr)
	} else if mcpManager != nil {
		mcpManager.RegisterTools(registry, 0)
		defer mcpManager.Close()
	}

	if err := registry.LoadDefaultPlugins(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: loading default plugins: %v\n", err)
	}
	if strings.TrimSpace(*pluginsDir) != "" {
		if err := registry.LoadExternal(*pluginsDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: loading plugins from %s: %v\n", *pluginsDir, err)
		}
	}

	a := &agent.Agent{
		Client:   client,
		Tools:    registry,
		Config:   cfg,
		Narrator: n,
		Metrics:  metrics,
		Logger:   logger,
	}

	result, err := a.Run(ctx, *task, agent.RunOptions{SessionID: sid})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result == nil {
		fmt.Fprintln(os.Stderr, "Task was cancelled.")
		os.Exit(130)
	}
	fmt.Println(result.Summary)
}

// serveMetrics exposes the Prometheus registry at /metrics until the process
// exits. Run in its own goroutine; a bind failure is fatal since an operator
// asked for it explicitly via -metrics-addr.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}

// terminalHumanInput satisfies tool.HumanInputProvider by prompting on
// stdin. It only fires before a task's first Run call rebinds the tool to
// the real gate (ExecutionContext.Ask); kept as the pre-bind value so the
// registry never holds a nil provider between construction and the first
// Agent.Run.
type terminalHumanInput struct{}

func (terminalHumanInput) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(os.Stderr, "\n[human input needed] %s\n> ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input available")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
