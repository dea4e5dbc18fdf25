package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"QiitaAnalyzer/internal/config"
	"QiitaAnalyzer/internal/domain"
	"QiitaAnalyzer/internal/ports"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	maxBodyBytes   = 4 << 20
)

// Texts surfaced to the user.
const (
	// NoResponseText stands in for a success body without candidate text.
	NoResponseText = "No response text was returned."

	MessageRequestFailed = "The AI request failed."
	MessageMalformed     = "The AI service returned a malformed response."
	MessageUnreachable   = "Could not reach the AI service."
	MessageMissingKey    = "A Gemini API key is required."
)

// GeminiClient implements ports.TextGenerator against the generateContent endpoint.
type GeminiClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.GeminiConfig, logger *slog.Logger) *GeminiClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		baseURL:    base,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the first candidate text.
func (c *GeminiClient) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	if c == nil {
		return "", domain.NewError(domain.ErrConfiguration, MessageRequestFailed, errors.New("gemini client is nil"))
	}
	if apiKey == "" {
		return "", domain.NewError(domain.ErrConfiguration, MessageMissingKey, nil)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", domain.NewError(domain.ErrAIRequest, MessageRequestFailed, fmt.Errorf("marshal gemini payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(apiKey), bytes.NewReader(body))
	if err != nil {
		return "", domain.NewError(domain.ErrAIRequest, MessageRequestFailed, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewError(domain.ErrTransport, MessageUnreachable, fmt.Errorf("send prompt: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", domain.NewError(domain.ErrTransport, MessageUnreachable, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewError(domain.ErrAIRequest, errorMessage(raw), fmt.Errorf("gemini returned %s", resp.Status))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", domain.NewError(domain.ErrAIRequest, MessageMalformed, fmt.Errorf("decode response: %w", err))
	}

	text := firstText(decoded)
	if strings.TrimSpace(text) == "" {
		if c.logger != nil {
			c.logger.Debug("gemini returned no candidate text", "model", c.model)
		}
		return NoResponseText, nil
	}
	return text, nil
}

func (c *GeminiClient) endpoint(apiKey string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(apiKey))
}

func firstText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// errorMessage returns error.message verbatim when the body carries one.
func errorMessage(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return MessageRequestFailed
}
