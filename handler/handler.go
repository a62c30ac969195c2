// Package handler adapts API Gateway proxy events to the ask service. It owns
// request decoding, error-to-status mapping and correlation IDs; it holds no
// conversation state.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"sermon-agent/internal/config"
	"sermon-agent/internal/domain"
	"sermon-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// AskUseCase is the slice of the ask service the handler depends on.
type AskUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	Prompts(ctx context.Context) (usecase.PromptsOutput, error)
}

type askRequest struct {
	Question string           `json:"question"`
	History  []historyMessage `json:"history"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sourceReference struct {
	Title   string `json:"title"`
	URI     string `json:"uri"`
	Speaker string `json:"speaker"`
}

type askResponse struct {
	Answer  string            `json:"answer"`
	Sources []sourceReference `json:"sources"`
}

type promptsResponse struct {
	Disclaimer  string          `json:"disclaimer"`
	Suggestions []config.Prompt `json:"suggestions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler routes API Gateway events.
type Handler struct {
	uc AskUseCase
}

func NewHandler(uc AskUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle dispatches one API Gateway event. Errors never propagate as Lambda
// failures; they become JSON error bodies with mapped status codes.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	switch {
	case event.HTTPMethod == http.MethodPost && event.Path == "/ask":
		return h.handleAsk(ctx, event, corrID), nil
	case event.HTTPMethod == http.MethodGet && event.Path == "/prompts":
		return h.handlePrompts(ctx, corrID), nil
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"}, corrID), nil
	}
}

func (h *Handler) handleAsk(ctx context.Context, event events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	var req askRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}, corrID)
	}

	history := make([]domain.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}

	out, err := h.uc.Ask(ctx, usecase.AskInput{Question: req.Question, History: history})
	if err != nil {
		return h.errorResponse(ctx, err, corrID)
	}

	sources := make([]sourceReference, 0, len(out.Sources))
	for _, s := range out.Sources {
		sources = append(sources, sourceReference{Title: s.Title, URI: s.URI, Speaker: s.Speaker})
	}
	return jsonResponse(http.StatusOK, askResponse{Answer: out.Answer, Sources: sources}, corrID)
}

func (h *Handler) handlePrompts(ctx context.Context, corrID string) events.APIGatewayProxyResponse {
	out, err := h.uc.Prompts(ctx)
	if err != nil {
		return h.errorResponse(ctx, err, corrID)
	}
	return jsonResponse(http.StatusOK, promptsResponse{Disclaimer: out.Disclaimer, Suggestions: out.Suggestions}, corrID)
}

func (h *Handler) errorResponse(ctx context.Context, err error, corrID string) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) {
		code = usecaseErr.Code
	}
	status := statusForCode(code)
	if status >= 500 {
		slog.ErrorContext(ctx, "request failed", "code", code, "correlation_id", corrID, "err", err)
	}
	return jsonResponse(status, errorResponse{Error: string(code)}, corrID)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// correlationID reuses the caller-provided header, matched case-insensitively,
// or generates a fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonResponse(status int, body any, corrID string) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		// marshalling our own response types cannot realistically fail
		payload = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(payload),
	}
}
