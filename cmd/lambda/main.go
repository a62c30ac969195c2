package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"sermon-agent/handler"
	"sermon-agent/internal/config"
	"sermon-agent/internal/integrations/gemini"
	"sermon-agent/internal/integrations/paramstore"
	"sermon-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")

	// ---- AWS SDK config ----
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	geminiClient, err := gemini.NewClient(gemini.ParameterKey{
		Params: ssmClient,
		Name:   paramPrefix + "/gemini-api-token",
	})
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	askService, err := usecase.NewAskService(config.ParameterSource{
		Params: ssmClient,
		Name:   paramPrefix + "/config",
	}, geminiClient)
	if err != nil {
		slog.Error("failed to create ask service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(askService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
