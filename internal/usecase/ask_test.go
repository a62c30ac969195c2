package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sermon-agent/internal/config"
	"sermon-agent/internal/domain"
	"sermon-agent/internal/integrations/gemini"
)

type mockProvider struct {
	out       gemini.Result
	err       error
	callCount int

	lastModel       string
	lastInstruction string
	lastTurns       []domain.Turn
}

func (m *mockProvider) Generate(_ context.Context, model, instruction string, turns []domain.Turn) (gemini.Result, error) {
	m.callCount++
	m.lastModel = model
	m.lastInstruction = instruction
	m.lastTurns = turns
	return m.out, m.err
}

type failingSource struct {
	err   error
	calls int
}

func (s *failingSource) LoadConfig(context.Context) (config.Config, error) {
	s.calls++
	if s.err != nil {
		return config.Config{}, s.err
	}
	return config.Default(), nil
}

type transientSource struct {
	failOnce bool
	calls    int
}

func (s *transientSource) LoadConfig(context.Context) (config.Config, error) {
	s.calls++
	if s.failOnce {
		s.failOnce = false
		return config.Config{}, errors.New("temporary parameter store failure")
	}
	return config.Default(), nil
}

func newTestService(t *testing.T, src config.Source, p Provider) *AskService {
	t.Helper()
	svc, err := NewAskService(src, p)
	require.NoError(t, err)
	return svc
}

func defaultSource() config.Source {
	return config.StaticSource(config.Default())
}

func expectAskError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func TestNewAskService_ValidatesDependencies(t *testing.T) {
	_, err := NewAskService(nil, &mockProvider{})
	require.Error(t, err)

	_, err = NewAskService(defaultSource(), nil)
	require.Error(t, err)
}

func TestAsk_HappyPath(t *testing.T) {
	p := &mockProvider{out: gemini.Result{
		Text: "The Apostle explains that honor is a *law*.",
		Citations: []domain.Citation{
			{URI: "https://youtube.com/x", Title: "Apostle Selman - The Law of Honor"},
			{URI: "https://random.com/y", Title: "Unrelated"},
		},
	}}
	svc := newTestService(t, defaultSource(), p)

	out, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	require.NoError(t, err)
	require.Equal(t, "The Apostle explains that honor is a law.", out.Answer)
	require.Equal(t, []domain.SourceReference{{
		Title:   "Apostle Selman - The Law of Honor",
		URI:     "https://youtube.com/x",
		Speaker: "Apostle Joshua Selman",
	}}, out.Sources)

	require.Equal(t, 1, p.callCount)
	require.Equal(t, config.Default().Model, p.lastModel)
	require.Equal(t, config.Default().SystemInstruction, p.lastInstruction)
}

func TestAsk_ValidationErrors(t *testing.T) {
	svc := newTestService(t, defaultSource(), &mockProvider{})

	_, err := svc.Ask(context.Background(), AskInput{Question: "   "})
	expectAskError(t, err, ErrorInvalidInput, "empty_question")

	_, err = svc.Ask(context.Background(), AskInput{Question: strings.Repeat("a", config.Default().MaxQuestionLength+1)})
	expectAskError(t, err, ErrorInvalidInput, "question_too_long")
}

func TestAsk_ProviderErrors(t *testing.T) {
	svc := newTestService(t, defaultSource(), &mockProvider{err: &gemini.HTTPStatusError{StatusCode: 429}})
	_, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	expectAskError(t, err, ErrorRateLimited, "provider_rate_limited")

	svc = newTestService(t, defaultSource(), &mockProvider{err: &gemini.HTTPStatusError{StatusCode: 500}})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	expectAskError(t, err, ErrorUpstream, "provider_error")

	svc = newTestService(t, defaultSource(), &mockProvider{err: errors.New("connection refused")})
	_, err = svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	expectAskError(t, err, ErrorUpstream, "provider_error")
}

func TestAsk_ConfigLoadError(t *testing.T) {
	p := &mockProvider{}
	svc := newTestService(t, &failingSource{err: errors.New("ssm unavailable")}, p)
	_, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	expectAskError(t, err, ErrorInternal, "config_load_error")
	require.Zero(t, p.callCount)
}

func TestAsk_ConfigLoadError_IsRetriedOnNextRequest(t *testing.T) {
	src := &transientSource{failOnce: true}
	p := &mockProvider{out: gemini.Result{Text: "ok"}}
	svc := newTestService(t, src, p)

	_, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	expectAskError(t, err, ErrorInternal, "config_load_error")

	out, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Answer)
	require.Equal(t, 2, src.calls)
}

func TestAsk_ConfigLoadedOnce(t *testing.T) {
	src := &transientSource{}
	p := &mockProvider{out: gemini.Result{Text: "ok"}}
	svc := newTestService(t, src, p)

	for i := 0; i < 3; i++ {
		_, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, src.calls)
}

func TestAsk_EmptyAnswerSubstitutesPlaceholder(t *testing.T) {
	p := &mockProvider{out: gemini.Result{
		Citations: []domain.Citation{{URI: "https://youtube.com/x", Title: "Koinonia service"}},
	}}
	svc := newTestService(t, defaultSource(), p)

	out, err := svc.Ask(context.Background(), AskInput{Question: "What is honor?"})
	require.NoError(t, err)
	require.Equal(t, config.Default().EmptyPlaceholder, out.Answer)
	require.Len(t, out.Sources, 1)
}

func TestAsk_HistoryExcludesSystemNotices(t *testing.T) {
	history := []domain.Message{
		domain.NewSystemNotice("disclaimer"),
		domain.NewUserMessage("What is honor?"),
		domain.NewAssistantMessage("Honor is a law.", nil),
		domain.NewSystemNotice("archive unavailable"),
	}
	p := &mockProvider{out: gemini.Result{Text: "ok"}}
	svc := newTestService(t, defaultSource(), p)

	_, err := svc.Ask(context.Background(), AskInput{Question: "Which sermon?", History: history})
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Text: "What is honor?"},
		{Role: domain.RoleAssistant, Text: "Honor is a law."},
		{Role: domain.RoleUser, Text: "Which sermon?"},
	}, p.lastTurns)
}

func TestAsk_DoesNotMutateHistory(t *testing.T) {
	history := []domain.Message{domain.NewUserMessage("What is honor?")}
	p := &mockProvider{out: gemini.Result{Text: "ok"}}
	svc := newTestService(t, defaultSource(), p)

	_, err := svc.Ask(context.Background(), AskInput{Question: "Which sermon?", History: history})
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "What is honor?", history[0].Content)
}

func TestBuildTurns_CapsToMostRecent(t *testing.T) {
	var history []domain.Message
	for i := 0; i < 30; i++ {
		history = append(history, domain.NewUserMessage("q"), domain.NewAssistantMessage("a", nil))
	}
	turns := buildTurns(history, "latest", 20)
	require.Len(t, turns, 21)
	require.Equal(t, "latest", turns[20].Text)
}

func TestBuildTurns_SkipsEmptyContent(t *testing.T) {
	history := []domain.Message{
		domain.NewUserMessage("  "),
		domain.NewAssistantMessage("kept", nil),
	}
	turns := buildTurns(history, "q", 20)
	require.Len(t, turns, 2)
	require.Equal(t, "kept", turns[0].Text)
}

func TestPrompts(t *testing.T) {
	svc := newTestService(t, defaultSource(), &mockProvider{})
	out, err := svc.Prompts(context.Background())
	require.NoError(t, err)
	require.Equal(t, config.Default().Disclaimer, out.Disclaimer)
	require.Len(t, out.Suggestions, 4)
}

func TestPrompts_ConfigLoadError(t *testing.T) {
	svc := newTestService(t, &failingSource{err: errors.New("ssm unavailable")}, &mockProvider{})
	_, err := svc.Prompts(context.Background())
	expectAskError(t, err, ErrorInternal, "config_load_error")
}

func TestFallbackNotice(t *testing.T) {
	svc := newTestService(t, defaultSource(), &mockProvider{})
	notice, err := svc.FallbackNotice(context.Background())
	require.NoError(t, err)
	require.Equal(t, config.Default().FallbackNotice, notice)
}
