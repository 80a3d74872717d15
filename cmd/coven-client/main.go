// ABOUTME: Entry point for the coven-client sync daemon
// ABOUTME: Connects to a coven chat server and keeps local state in sync

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/coven-client/internal/config"
	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/metrics"
	"github.com/2389/coven-client/internal/session"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                     _ _            _
  ___ _____   _____ _ __        ___| (_) ___ _ __ | |_
 / __/ _ \ \ / / _ \ '_ \ _____/ __| | |/ _ \ '_ \| __|
| (_| (_) \ V /  __/ | | |_____\__ \ | |  __/ | | | |_
 \___\___/ \_/ \___|_| |_|     |___/_|_|\___|_| |_|\__|
`

// getConfigPath returns the path to the client config file.
// Priority: COVEN_CLIENT_CONFIG env var > XDG_CONFIG_HOME/coven/client.yaml > ~/.config/coven/client.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_CLIENT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "client.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "client.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-client <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  run    Connect and keep local state in sync")
		fmt.Println("  init   Create a new config file interactively")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runSync(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSync(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("API:       %s\n", cfg.Server.APIURL)
	green.Print("    ▶ ")
	fmt.Printf("Websocket: %s\n", cfg.Server.WebsocketURL)
	if len(cfg.Teams) > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Teams:     %s\n", strings.Join(cfg.Teams, ", "))
	}
	fmt.Println()

	var opts []session.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		opts = append(opts, session.WithRecorder(metrics.NewProm(reg)))
		go serveMetrics(cfg.Metrics, reg, logger)
	}

	s, err := session.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer s.Close()

	// Surface connection transitions on the console.
	s.Bus().Subscribe(string(event.TypeConnectionState), func(e event.Event) {
		switch e.State {
		case "connected":
			green.Printf("  ● %s\n", e.State)
		case "failed":
			color.New(color.FgRed, color.Bold).Printf("  ● %s\n", e.State)
		default:
			color.New(color.FgYellow).Printf("  ● %s\n", e.State)
		}
	})

	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	logger.Info("coven-client running",
		"config", configPath,
		"api_url", cfg.Server.APIURL,
		"teams", len(cfg.Teams),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", "addr", cfg.Addr, "path", cfg.Path)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Error("metrics endpoint failed", "error", err)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("coven-client configuration setup")
	fmt.Println("================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	apiURL := prompt(reader, "API URL", "https://localhost:8080")
	wsURL := prompt(reader, "Websocket URL", "wss://localhost:8080/ws")
	token := prompt(reader, "Bearer token (or ${COVEN_TOKEN})", "${COVEN_TOKEN}")

	fmt.Println("\n--- Teams ---")
	teamsRaw := prompt(reader, "Teams to join (comma separated, empty for none)", "")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# coven-client configuration\n")
	cfg.WriteString("# Generated by coven-client init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  api_url: \"%s\"\n", apiURL))
	cfg.WriteString(fmt.Sprintf("  websocket_url: \"%s\"\n", wsURL))
	cfg.WriteString(fmt.Sprintf("  token: \"%s\"\n", token))
	cfg.WriteString("\n")

	if teamsRaw != "" {
		cfg.WriteString("teams:\n")
		for _, team := range strings.Split(teamsRaw, ",") {
			cfg.WriteString(fmt.Sprintf("  - \"%s\"\n", strings.TrimSpace(team)))
		}
		cfg.WriteString("\n")
	}

	cfg.WriteString("realtime:\n")
	cfg.WriteString("  backoff_base: \"1s\"\n")
	cfg.WriteString("  max_reconnect_attempts: 5\n")
	cfg.WriteString("  heartbeat_interval: \"30s\"\n")
	cfg.WriteString("  queue_capacity: 100\n")
	cfg.WriteString("  queue_max_age: \"5m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  addr: \"localhost:9091\"\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start syncing:")
	fmt.Printf("  coven-client run\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
