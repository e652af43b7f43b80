package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/sentiguard/internal/api"
	"github.com/kalambet/sentiguard/internal/capture"
	"github.com/kalambet/sentiguard/internal/config"
	"github.com/kalambet/sentiguard/internal/engine"
	"github.com/kalambet/sentiguard/internal/ingest"
	"github.com/kalambet/sentiguard/internal/monitor"
	"github.com/kalambet/sentiguard/internal/notify"
	"github.com/kalambet/sentiguard/internal/scheduler"
	"github.com/kalambet/sentiguard/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sentiguard server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running sentiguard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sentiguard system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP tools on stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "sentiguard.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func monitorSettings(cfg config.Config) monitor.Settings {
	return monitor.Settings{
		Threshold:     cfg.Alert.Threshold,
		Limit:         cfg.Alert.Limit,
		Guardian:      cfg.Alert.Guardian,
		MaxEntries:    cfg.History.MaxEntries,
		FlushBatch:    cfg.History.FlushBatch,
		RetainOnExit:  cfg.History.RetainOnExit,
		SyntaxEnabled: cfg.Analysis.SyntaxEnabled,
		CacheSize:     cfg.Analysis.CacheSize,
	}
}

// buildNotifier picks Telegram when a bot token is configured and wraps the
// result in the minimum-interval throttle.
func buildNotifier(cfg config.Config) notify.Notifier {
	var n notify.Notifier = notify.NewLogNotifier(slog.Default())
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, &http.Client{Timeout: 15 * time.Second})
		if err != nil {
			slog.Warn("telegram notifier unavailable, alerts will only be logged", "error", err)
		} else {
			n = tg
		}
	}
	return notify.NewThrottled(n, cfg.AlertMinInterval())
}

// detectBackend returns nil (not an error) when no inference backend is
// reachable so the session runs on the lexicon classifier.
func detectBackend(ctx context.Context, cfg config.Config, w io.Writer) (*engine.Backend, engine.Capabilities, error) {
	b, err := engine.Detect(ctx, engine.DetectConfig{
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OllamaChatModel:  cfg.Ollama.ClassifierModel,
		OllamaEmbedModel: cfg.Ollama.EmbedModel,
		OpenAIBaseURL:    cfg.OpenAI.BaseURL,
		OpenAIAPIKey:     cfg.OpenAI.APIKey,
		OpenAIChatModel:  cfg.OpenAI.Model,
		OpenAIEmbedModel: cfg.OpenAI.EmbedModel,
	})
	if errors.Is(err, engine.ErrNoBackend) {
		slog.Warn("no inference backend reachable, scoring with the lexicon")
		return nil, engine.Capabilities{}, nil
	}
	if err != nil {
		return nil, engine.Capabilities{}, fmt.Errorf("detecting inference backend: %w", err)
	}
	caps, err := engine.EnsureReady(ctx, b, w)
	if err != nil {
		slog.Warn("inference backend not ready, scoring with the lexicon", "backend", b.Name, "error", err)
		return nil, engine.Capabilities{}, nil
	}
	slog.Info("inference backend ready", "backend", b.Name, "chat", caps.Chat, "embeddings", caps.Embeddings)
	return b, caps, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "sentiguard version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)})))
	if cfg.Server.Token == "" {
		slog.Warn("server.token not set, API is unauthenticated on localhost")
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	backend, caps, err := detectBackend(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	utterances := capture.NewLog(cfg.Capture.LogPath)
	mon := monitor.New(ctx, monitor.Deps{
		Store:        store,
		Log:          utterances,
		Backend:      backend,
		Capabilities: caps,
		Notifier:     buildNotifier(cfg),
		Settings:     monitorSettings(cfg),
	})
	defer func() {
		stop()
		if err := mon.Teardown(); err != nil {
			slog.Error("session teardown incomplete", "error", err)
		}
	}()

	sched := scheduler.New(mon, time.Local)
	if err := sched.Start(cfg.History.FlushSchedule, ""); err != nil {
		return err
	}
	defer sched.Stop()

	worker := ingest.NewWorker(utterances, mon, cfg.PollInterval())
	go worker.Run(ctx)

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: mon, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewAppHandler(api.AppDeps{
			Service: mon,
			Token:   cfg.Server.Token,
			Version: version,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "sentiguard listening on %s, watching %s\n", addr, cfg.Capture.LogPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openLocalMonitor builds a monitor over the on-disk store for commands that
// work without a running server. It never contacts an inference backend.
func openLocalMonitor(ctx context.Context) (*monitor.Monitor, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	mon := monitor.New(ctx, monitor.Deps{
		Store:    store,
		Log:      capture.NewLog(cfg.Capture.LogPath),
		Notifier: notify.NewLogNotifier(slog.Default()),
		Settings: monitorSettings(cfg),
	})
	return mon, func() { store.Close() }, nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("sentiguard is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop sentiguard (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to sentiguard (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.Token,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	var health struct {
		Version  string            `json:"version"`
		Strategy map[string]string `json:"strategy"`
	}
	running := client.getJSON(ctx, "/health", &health) == nil
	if running {
		printStatus("Server", "running on port %d (version %s)", cfg.Server.Port, health.Version)
		for _, k := range []string{"classifier", "semantic", "syntax"} {
			if v, ok := health.Strategy[k]; ok {
				printStatus("  "+k, "%s", v)
			}
		}
	} else {
		printStatus("Server", "stopped")
	}

	probe := &http.Client{Timeout: 2 * time.Second}
	if resp, err := probe.Get(cfg.Ollama.BaseURL + "/api/version"); err != nil {
		printStatus("Ollama", "not running")
	} else {
		resp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}
	printStatus("Classifier model", "%s", cfg.Ollama.ClassifierModel)
	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	if cfg.OpenAI.APIKey != "" {
		printStatus("OpenAI fallback", "%s at %s", cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	}

	if running {
		if err := runAlertStatus(ctx, client); err != nil {
			printWarning("alert state unavailable: %v", err)
		}
	}

	guardian := cfg.Alert.Guardian
	if guardian == "" {
		guardian = "(none, alerts are only logged)"
	}
	printStatus("Guardian", "%s", guardian)
	printStatus("Capture log", "%s", cfg.Capture.LogPath)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
