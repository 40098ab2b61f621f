package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"btc-signal-bot/internal/config"
	"btc-signal-bot/internal/credential"
	"btc-signal-bot/internal/llm"
	"btc-signal-bot/internal/trace"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client calls the Groq OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	temperature float64
	maxTokens   int
}

var _ llm.Client = (*Client)(nil)

type Option func(*Client)

// WithBaseURL points the client at a different endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.LLMTimeout()},
		baseURL:     defaultBaseURL,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one chat completion. Every failure is wrapped in
// llm.CallError so the orchestrator can decide whether to rotate, retire
// the credential, or abort.
func (c *Client) Complete(ctx context.Context, model, prompt string, cred credential.Credential) (string, error) {
	ctx, span := trace.StartSpan(ctx, "groq-api-call")
	defer span.End()

	body := map[string]any{
		"model":       model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}
	bb, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bb))
	if err != nil {
		return "", llm.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", cred.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", llm.Skippable(fmt.Errorf("request timed out: %w", err))
		}
		return "", llm.Fatal(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", llm.Fatal(err)
	}

	if err := classifyStatus(resp, payload); err != nil {
		return "", err
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", llm.Fatal(fmt.Errorf("decode response: %w", err))
	}
	if len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
		return "", llm.Fatal(errors.New("response carried no content"))
	}

	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

// classifyStatus maps an HTTP failure onto the orchestrator's retry
// semantics. Rate limits, quota exhaustion, and oversized payloads are
// worth retrying elsewhere; an HTML body means a gateway or bot check
// answered instead of the API.
func classifyStatus(resp *http.Response, payload []byte) error {
	if resp.StatusCode < 300 {
		return nil
	}

	bodyErr := fmt.Errorf("groq http %d: %s", resp.StatusCode, truncate(payload, 200))

	if looksLikeHTML(resp, payload) {
		return llm.Skippable(fmt.Errorf("non-API response: %w", bodyErr))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.BadCredential(bodyErr)
	case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge:
		return llm.Skippable(bodyErr)
	}

	lower := strings.ToLower(string(payload))
	switch {
	case strings.Contains(lower, "invalid_api_key") || strings.Contains(lower, "invalid api key"):
		return llm.BadCredential(bodyErr)
	case strings.Contains(lower, "rate_limit") || strings.Contains(lower, "quota"):
		return llm.Skippable(bodyErr)
	}
	return llm.Fatal(bodyErr)
}

func looksLikeHTML(resp *http.Response, payload []byte) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return true
	}
	trimmed := strings.TrimSpace(string(payload))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	// Cutting mid-rune would leave an invalid tail in the error string.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
