package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
)

const (
	defaultAPIURL = "https://api.openai.com/v1/chat/completions"
	defaultModel  = "gpt-4o"

	maxAttempts = 3

	systemPrompt = `You are Gabay AI, an intelligent study companion and tutor for Filipino students. Your name "Gabay" means "guide" in Filipino. You help students with academic questions across all subjects including math, science, history, literature, and study techniques. Provide clear, helpful explanations that are culturally relevant and encouraging. Keep responses concise but informative. Use emojis to make responses engaging. Always be supportive and motivating in your responses.`
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errBadAPIKey   = errors.New("invalid api key")
)

// OpenAIConfig holds configuration for the network-backed responder.
type OpenAIConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenAIResponder answers questions via the OpenAI chat completions API.
// It degrades to the rule table on any failure, so Respond always
// produces usable text.
type OpenAIResponder struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
	sleep  func(time.Duration)
}

// NewOpenAIResponder creates a network-backed responder.
func NewOpenAIResponder(cfg OpenAIConfig) *OpenAIResponder {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIResponder{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
		sleep:  time.Sleep,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
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
}

// Respond asks the chat completions API and falls back to the rule table
// on any failure. Rate-limit and key failures are surfaced through the
// Reply's Success flag and a prefixed fallback text.
func (o *OpenAIResponder) Respond(ctx context.Context, question string) Reply {
	l := log.Ctx(ctx)

	hasKey := strings.TrimSpace(o.apiKey) != ""
	l.Debug().
		Bool("api_key_present", hasKey).
		Int("api_key_length", len(o.apiKey)).
		Bool("api_key_format_ok", strings.HasPrefix(o.apiKey, "sk-")).
		Msg("assistant api key check")

	if !hasKey {
		l.Warn().Msg("assistant api key not configured, using rule fallback")
		return Reply{Success: true, Text: RuleAnswer(question)}
	}

	text, err := o.complete(ctx, question)
	if err == nil {
		return Reply{Success: true, Text: text}
	}

	l.Error().Err(err).Msg("assistant api request failed")

	switch {
	case errors.Is(err, errRateLimited):
		return Reply{
			Success: false,
			Text:    "I'm currently experiencing high demand. Please try again in a few minutes. In the meantime, here's a helpful response: " + RuleAnswer(question),
		}
	case errors.Is(err, errBadAPIKey):
		return Reply{
			Success: false,
			Text:    "There's an issue with the AI service configuration. Here's a helpful response instead: " + RuleAnswer(question),
		}
	default:
		return Reply{Success: true, Text: RuleAnswer(question)}
	}
}

func (o *OpenAIResponder) complete(ctx context.Context, question string) (string, error) {
	l := log.Ctx(ctx)

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				l.Warn().Err(err).Int("attempt", attempt).Msg("assistant api network error, retrying")
				o.sleep(time.Duration(attempt) * time.Second)
			}
			continue
		}

		status := resp.StatusCode
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		l.Debug().Int("status", status).Msg("assistant api response")

		switch {
		case status == http.StatusOK:
			if readErr != nil {
				return "", fmt.Errorf("failed to read response: %w", readErr)
			}
			var parsed chatResponse
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return "", fmt.Errorf("failed to parse response: %w", err)
			}
			if len(parsed.Choices) == 0 {
				return "", errors.New("empty choices in response")
			}
			text := strings.TrimSpace(parsed.Choices[0].Message.Content)
			if text == "" {
				return "", errors.New("empty completion text")
			}
			return text, nil

		case status == http.StatusTooManyRequests:
			lastErr = errRateLimited
			if attempt < maxAttempts {
				wait := time.Duration(1<<attempt) * time.Second
				l.Warn().Int("attempt", attempt).Dur("wait", wait).Msg("assistant api rate limited, backing off")
				o.sleep(wait)
				continue
			}

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return "", fmt.Errorf("%w: status %d", errBadAPIKey, status)

		default:
			return "", fmt.Errorf("assistant api error: status %d", status)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown assistant api error")
	}
	return "", lastErr
}
