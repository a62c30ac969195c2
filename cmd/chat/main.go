package main

import (
	"log/slog"
	"os"

	"sermon-agent/internal/config"
	"sermon-agent/internal/integrations/gemini"
	"sermon-agent/internal/ui"
	"sermon-agent/internal/usecase"
)

func main() {
	// ---- Configuration (read only here) ----
	apiKey := mustEnv("GEMINI_API_KEY")
	configPath := os.Getenv("SERMON_AGENT_CONFIG")

	geminiClient, err := gemini.NewClient(gemini.StaticKey(apiKey))
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	askService, err := usecase.NewAskService(config.FileSource{Path: configPath}, geminiClient)
	if err != nil {
		slog.Error("failed to create ask service", "err", err)
		os.Exit(1)
	}

	if err := ui.Run(askService); err != nil {
		slog.Error("chat view failed", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
