package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/kvit-s/kvit-agent/internal/agent"
	"github.com/kvit-s/kvit-agent/internal/config"
	"github.com/kvit-s/kvit-agent/internal/fileio"
	"github.com/kvit-s/kvit-agent/internal/llm"
	"github.com/kvit-s/kvit-agent/internal/security"
	"github.com/kvit-s/kvit-agent/internal/session"
	"github.com/kvit-s/kvit-agent/internal/tools"
	"github.com/kvit-s/kvit-agent/internal/ui"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
	buildDate  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	apiKey := flag.String("api-key", "", "override API key")
	baseURL := flag.String("base-url", "", "override API base URL")
	model := flag.String("model", "", "override model name")
	maxTurns := flag.Int("max-turns", 0, "override maximum conversation turns")
	timeoutSec := flag.Int("timeout", 0, "override per-turn timeout in seconds")
	logFile := flag.String("log", "", "log file path (empty to disable)")
	execPrompt := flag.String("p", "", "exec mode: run one prompt and exit")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	dev := flag.Bool("dev", false, "enable debug logging")
	showConfig := flag.Bool("show-config", false, "print resolved configuration and exit")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("kvit-agent %s (%s, built %s)\n", version, commitHash, buildDate)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *apiKey != "" {
		cfg.API.Key = *apiKey
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *model != "" {
		cfg.API.Model = *model
	}
	if *maxTurns > 0 {
		cfg.Agent.MaxTurns = *maxTurns
	}
	if *timeoutSec > 0 {
		cfg.API.TimeoutMS = *timeoutSec * 1000
	}
	if *logFile != "" {
		cfg.LogPath = *logFile
	}

	if *showConfig {
		printConfig(cfg)
		return
	}

	key, err := security.ValidateAPIKey(cfg.API.Key)
	if err != nil {
		log.Fatalf("API key rejected: %v (set ANTHROPIC_API_KEY or api.key in %s)", err, *configPath)
	}

	writer := ui.NewWriter(*quiet)

	logger, err := agent.NewLogger(cfg.LogPath, *dev)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer logger.Close()

	files := fileio.NewProcessor(logger.Zap())
	executor := tools.NewExecutor(files, logger.Zap())

	client := llm.NewClient(llm.Options{
		APIKey:    key,
		BaseURL:   cfg.API.BaseURL,
		Model:     cfg.API.Model,
		MaxTokens: cfg.API.MaxTokens,
		Tools:     executor.Specs(),
		Logger:    logger.Zap(),
	})

	orch := agent.New(agent.Options{
		Client:      client,
		Executor:    executor,
		Writer:      writer,
		Logger:      logger,
		MaxTurns:    cfg.Agent.MaxTurns,
		MaxHistory:  cfg.Agent.MaxHistory,
		TurnTimeout: time.Duration(cfg.API.TimeoutMS) * time.Millisecond,
	})
	if cfg.Agent.System != "" {
		orch.Seed(cfg.Agent.System)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	writer.StartupInfo(fmt.Sprintf("kvit-agent %s | model %s | max turns %d",
		version, cfg.API.Model, cfg.Agent.MaxTurns))

	if *execPrompt != "" {
		if err := orch.RunTurn(ctx, *execPrompt); err != nil {
			writer.Error(err.Error())
			shutdown(cfg, client, orch, writer)
			os.Exit(1)
		}
		shutdown(cfg, client, orch, writer)
		return
	}

	repl(ctx, orch, writer)
	shutdown(cfg, client, orch, writer)
}

func repl(ctx context.Context, orch *agent.Orchestrator, writer *ui.Writer) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if ctx.Err() != nil {
			return
		}
		writer.Prompt()
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}

		err := orch.RunTurn(ctx, input)
		switch {
		case err == nil:
		case errors.Is(err, agent.ErrTurnLimitReached):
			writer.Info("turn limit reached, ending conversation")
			return
		case errors.Is(err, context.Canceled):
			return
		default:
			writer.Error(err.Error())
		}
	}
}

func shutdown(cfg *config.Config, client *llm.Client, orch *agent.Orchestrator, writer *ui.Writer) {
	client.Stats().PrintTo(os.Stderr)

	if !cfg.AutoSave || len(orch.History()) == 0 {
		return
	}
	mgr, err := session.NewManager()
	if err != nil {
		writer.Warn(fmt.Sprintf("session save unavailable: %v", err))
		return
	}
	name := mgr.GenerateName()
	meta := session.Metadata{
		CreatedAt: time.Now().UTC(),
		Version:   version,
		Model:     cfg.API.Model,
	}
	if err := mgr.Save(name, meta, orch.History()); err != nil {
		writer.Warn(fmt.Sprintf("session save failed: %v", err))
		return
	}
	writer.Info(fmt.Sprintf("session saved as %s", name))
}

func printConfig(cfg *config.Config) {
	masked := "(not set)"
	if cfg.API.Key != "" {
		masked = cfg.API.Key
		if len(masked) > 12 {
			masked = masked[:12] + "..."
		}
	}
	fmt.Printf("api.base_url:          %s\n", cfg.API.BaseURL)
	fmt.Printf("api.model:             %s\n", cfg.API.Model)
	fmt.Printf("api.max_tokens:        %d\n", cfg.API.MaxTokens)
	fmt.Printf("api.timeout_ms:        %d\n", cfg.API.TimeoutMS)
	fmt.Printf("api.key:               %s\n", masked)
	fmt.Printf("agent.max_turns:       %d\n", cfg.Agent.MaxTurns)
	fmt.Printf("agent.max_history:     %d\n", cfg.Agent.MaxHistory)
	fmt.Printf("auto_save:             %v\n", cfg.AutoSave)
	fmt.Printf("log_path:              %s\n", cfg.LogPath)
}
