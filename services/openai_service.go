package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samh164/ptappv3/config"
)

// Closed failure taxonomy for the completion API. Callers branch on these with
// errors.Is; anything transport-level that is not a timeout maps to
// ErrServerError.
var (
	ErrTimeout           = errors.New("completion request timed out")
	ErrRateLimited       = errors.New("completion rate limited")
	ErrQuotaExceeded     = errors.New("completion quota exceeded")
	ErrAuthFailed        = errors.New("completion auth failed")
	ErrServerError       = errors.New("completion server error")
	ErrMalformedResponse = errors.New("completion response malformed")
)

type OpenAIService struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAIService(cfg *config.Config) *OpenAIService {
	return &OpenAIService{
		client:  &http.Client{Timeout: cfg.OpenAITimeout},
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:   cfg.OpenAIModel,
	}
}

// Model reports the configured model name, recorded on persisted plans.
func (s *OpenAIService) Model() string { return s.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends one chat completion request and returns the generated text.
// Every failure comes back wrapped in one of the package sentinel errors.
func (s *OpenAIService) Complete(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error) {
	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrServerError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrServerError, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrServerError, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrServerError, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", s.classifyStatus(resp.StatusCode, respBytes)
	}

	var out chatResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("%w: decode: %v | body: %s", ErrMalformedResponse, err, preview(respBytes))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty choices | body: %s", ErrMalformedResponse, preview(respBytes))
	}
	return out.Choices[0].Message.Content, nil
}

func (s *OpenAIService) classifyStatus(status int, body []byte) error {
	var out chatResponse
	msg := preview(body)
	code := ""
	if json.Unmarshal(body, &out) == nil && out.Error != nil {
		msg = out.Error.Message
		code = out.Error.Code
	}

	switch {
	case status == http.StatusTooManyRequests && code == "insufficient_quota":
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (%d): %s", ErrAuthFailed, status, msg)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w (%d): %s", ErrTimeout, status, msg)
	case status >= 500:
		return fmt.Errorf("%w (%d): %s", ErrServerError, status, msg)
	default:
		return fmt.Errorf("%w (%d): %s", ErrServerError, status, msg)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
