// Package llm wraps the chat-completion gateway used to structure visit
// transcripts. The gateway speaks the common chat-completions wire format;
// message content may come back as a single string or as an array of
// strings, and callers receive the concatenated text either way.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client issues a single-prompt completion.
type Client interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
}

// CompleteOptions tune one completion call.
type CompleteOptions struct {
	MaxTokens    int
	Temperature  float64
	JSONResponse bool
}

// Config holds gateway settings.
type Config struct {
	APIURL string
	APIKey string
	Model  string
}

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt and returns the model's text output. Transport
// errors and 5xx responses are retried with exponential backoff.
func (c *HTTPClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	if c.cfg.APIURL == "" {
		return "", fmt.Errorf("language model API URL is not configured")
	}

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.JSONResponse {
		reqBody.ResponseFormat = map[string]interface{}{"type": "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var output string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("completion request: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("language model server error %d: %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("completion request rejected (%d): %s", resp.StatusCode, respBody))
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode completion response: %w", err))
		}
		if parsed.Error != nil {
			return backoff.Permanent(fmt.Errorf("language model error: %s", parsed.Error.Message))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("completion response has no choices"))
		}

		text, err := DecodeContent(parsed.Choices[0].Message.Content)
		if err != nil {
			return backoff.Permanent(err)
		}
		output = text
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return output, nil
}

// DecodeContent handles the two content shapes gateways return: a plain
// string or an array of string parts, which are concatenated.
func DecodeContent(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}

	return "", fmt.Errorf("unrecognized completion content shape: %s", raw)
}
