// Package gemini is a focused client for the Gemini generateContent endpoint
// with Google-Search grounding enabled. It returns the generated text plus the
// raw grounding citations; trust filtering happens downstream in the
// sanitizer.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sermon-agent/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// content is one conversation entry on the wire. Roles are "user" and "model".
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch *googleSearch `json:"google_search,omitempty"`
}

type googleSearch struct{}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// generateRequest is the minimal request shape for generateContent.
type generateRequest struct {
	SystemInstruction *content          `json:"system_instruction,omitempty"`
	Contents          []content         `json:"contents"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// generateResponse is the minimal response shape: candidate text plus
// grounding metadata.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// Result is one provider answer: generated text and the unfiltered grounding
// citation candidates. Both may be empty; an empty answer is not an error.
type Result struct {
	Text      string
	Citations []domain.Citation
}

// KeyProvider yields the API key used to authenticate provider calls.
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeyProvider holding a fixed key, e.g. from the environment.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", errors.New("gemini: api key is empty")
	}
	return string(k), nil
}

// Getter is the parameter-store slice used by ParameterKey.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape the API token is stored under in SSM.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParameterKey is a KeyProvider that reads a JSON token payload from the
// parameter store.
type ParameterKey struct {
	Params Getter
	Name   string
}

func (k ParameterKey) APIKey(ctx context.Context) (string, error) {
	if k.Params == nil {
		return "", errors.New("gemini: parameter getter is nil")
	}
	name := strings.TrimSpace(k.Name)
	if name == "" {
		return "", errors.New("gemini: token parameter name is empty")
	}
	raw, err := k.Params.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("gemini: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("gemini: API token is empty")
	}
	return tp.Token, nil
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client issues generateContent calls. The API key is resolved on the first
// call and reused for the lifetime of the process.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeyProvider

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given KeyProvider.
func NewClient(keys KeyProvider, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key provider must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = c.keys.APIKey(ctx)
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/v1beta/models/" + model + ":generateContent"
}

// Generate issues exactly one generateContent call with the fixed system
// instruction, search grounding enabled and temperature pinned to zero.
// It does not retry and does not stream. An answer with no candidates yields
// an empty Result without error; substitution text is the caller's concern.
func (c *Client) Generate(ctx context.Context, model, instruction string, turns []domain.Turn) (Result, error) {
	if model == "" {
		return Result{}, errors.New("gemini: model must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return Result{}, err
	}

	temperature := 0.0
	req := generateRequest{
		Contents:         make([]content, 0, len(turns)),
		Tools:            []tool{{GoogleSearch: &googleSearch{}}},
		GenerationConfig: &generationConfig{Temperature: &temperature},
	}
	if strings.TrimSpace(instruction) != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: instruction}}}
	}
	for _, t := range turns {
		req.Contents = append(req.Contents, content{
			Role:  wireRole(t.Role),
			Parts: []part{{Text: t.Text}},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := generateURL(c.baseURL, model)

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return Result{}, fmt.Errorf("gemini: create request: %w", reqErr)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	raw, err := c.doJSONRequest(httpReq, url)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return Result{}, fmt.Errorf("gemini: decode response: %w", decErr)
	}
	return extractResult(payload), nil
}

// wireRole maps a neutral conversation role to the provider's role names.
func wireRole(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "model"
	}
	return "user"
}

// extractResult pulls candidate text and grounding citations out of the
// response. Metadata is read even when the text is empty.
func extractResult(payload generateResponse) Result {
	if len(payload.Candidates) == 0 {
		return Result{}
	}
	cand := payload.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	var citations []domain.Citation
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
				continue
			}
			citations = append(citations, domain.Citation{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	return Result{Text: sb.String(), Citations: citations}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
