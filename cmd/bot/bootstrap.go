package main

import (
	"context"
	"fmt"
	"os"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/llm"
	"btc-signal-bot/internal/llm/groq"
	"btc-signal-bot/internal/llm/llmobs"
	"btc-signal-bot/internal/llm/noop"
	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/notify"
	"btc-signal-bot/internal/trace"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger, and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig reads the config file, falling back to the built-in defaults
// when no file exists at the given path.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "No config file found, using defaults", "path", path)
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// buildAdvisor wires the model advisor: credential rotation, the Groq
// client, and the model orchestrator, all wrapped with observability.
// Without credentials or with advice disabled a noop advisor is returned.
func buildAdvisor(ctx context.Context, cfg *config.Config) llm.Advisor {
	if !cfg.LLM.Enabled {
		logger.Info(ctx, "Model advice disabled by config")
		return llmobs.Wrap(noop.New())
	}

	creds := credential.NewStore(cfg.LLM.KeyPrefix, cfg.LLM.StateFile, cfg.Cooldown())
	if creds.Count() == 0 {
		logger.Warn(ctx, "No API credentials found, running rule engine only",
			"prefix", cfg.LLM.KeyPrefix)
		return llmobs.Wrap(noop.New())
	}
	logger.Info(ctx, "Credential pool loaded",
		"total", creds.Count(), "valid", creds.ValidCount())

	client := groq.New(cfg)
	return llmobs.Wrap(llm.NewOrchestrator(cfg.LLM.Models, creds, client))
}

// buildPublisher selects Feishu when a webhook is configured, otherwise
// the report only goes to the log.
func buildPublisher(ctx context.Context, cfg *config.Config) notify.Publisher {
	if cfg.Feishu.WebhookURL != "" {
		return notify.NewFeishu(cfg.Feishu.WebhookURL)
	}
	logger.Info(ctx, "No Feishu webhook configured, publishing to log only")
	return notify.NewLogPublisher()
}
