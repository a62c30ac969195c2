// Package usecase orchestrates one question/answer exchange: input
// validation, history mapping, the single provider call and the sanitizing
// pass over its response.
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"sermon-agent/internal/config"
	"sermon-agent/internal/domain"
	"sermon-agent/internal/integrations/gemini"
	"sermon-agent/internal/sanitize"
)

// Provider issues one generation call against the external endpoint.
type Provider interface {
	Generate(ctx context.Context, model, instruction string, turns []domain.Turn) (gemini.Result, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// AskService is the query dispatcher. It holds no conversation state; the
// full history arrives with every request.
type AskService struct {
	source   config.Source
	provider Provider

	cacheMu     sync.RWMutex
	cacheLoaded bool
	cfg         config.Config
	cleaner     *sanitize.Sanitizer
}

type AskInput struct {
	Question string
	History  []domain.Message
}

type AskOutput struct {
	Answer  string
	Sources []domain.SourceReference
}

// PromptsOutput carries the empty-state data the presentation layer renders
// before the first real turn.
type PromptsOutput struct {
	Disclaimer  string
	Suggestions []config.Prompt
}

func NewAskService(src config.Source, p Provider) (*AskService, error) {
	if src == nil {
		return nil, errors.New("usecase: config source must not be nil")
	}
	if p == nil {
		return nil, errors.New("usecase: provider must not be nil")
	}
	return &AskService{source: src, provider: p}, nil
}

// Ask validates the question, forwards the prior conversation plus the new
// prompt to the provider exactly once, and returns the sanitized answer with
// its admissible sources. It never mutates conversation state; appending the
// result is the caller's responsibility.
func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}

	cfg, cleaner, err := s.ensureConfig(ctx)
	if err != nil {
		return AskOutput{}, newError(ErrorInternal, "config_load_error", err)
	}
	if len(question) > cfg.MaxQuestionLength {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	turns := buildTurns(in.History, question, cfg.MaxHistoryTurns)

	raw, err := s.provider.Generate(ctx, cfg.Model, cfg.SystemInstruction, turns)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return AskOutput{}, newError(ErrorRateLimited, "provider_rate_limited", err)
		}
		return AskOutput{}, newError(ErrorUpstream, "provider_error", err)
	}

	res := cleaner.Sanitize(raw.Text, raw.Citations)
	return AskOutput{Answer: res.Text, Sources: res.Sources}, nil
}

// Prompts returns the disclaimer and starter prompts from the active
// configuration.
func (s *AskService) Prompts(ctx context.Context) (PromptsOutput, error) {
	cfg, _, err := s.ensureConfig(ctx)
	if err != nil {
		return PromptsOutput{}, newError(ErrorInternal, "config_load_error", err)
	}
	return PromptsOutput{Disclaimer: cfg.Disclaimer, Suggestions: cfg.Suggestions}, nil
}

// FallbackNotice returns the fixed user-facing text appended as a system
// notice when Ask fails with a provider error.
func (s *AskService) FallbackNotice(ctx context.Context) (string, error) {
	cfg, _, err := s.ensureConfig(ctx)
	if err != nil {
		return "", newError(ErrorInternal, "config_load_error", err)
	}
	return cfg.FallbackNotice, nil
}

// ensureConfig loads and caches the configuration and the sanitizer built
// from it. A failed load is retried on the next request.
func (s *AskService) ensureConfig(ctx context.Context) (config.Config, *sanitize.Sanitizer, error) {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		cfg, cleaner := s.cfg, s.cleaner
		s.cacheMu.RUnlock()
		return cfg, cleaner, nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return s.cfg, s.cleaner, nil
	}

	cfg, err := s.source.LoadConfig(ctx)
	if err != nil {
		return config.Config{}, nil, err
	}
	cleaner, err := sanitize.New(sanitize.Options{
		EmphasisMarkers:  cfg.EmphasisMarkers,
		OpeningDelimiter: cfg.CitationDelimiter,
		VideoHosts:       cfg.VideoHosts,
		AudioHosts:       cfg.AudioHosts,
		TrustTokens:      cfg.TrustTokens,
		Attribution:      cfg.Attribution,
		EmptyPlaceholder: cfg.EmptyPlaceholder,
	})
	if err != nil {
		return config.Config{}, nil, err
	}

	s.cfg = cfg
	s.cleaner = cleaner
	s.cacheLoaded = true
	return cfg, cleaner, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
