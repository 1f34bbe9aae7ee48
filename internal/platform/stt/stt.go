// Package stt wraps the speech-to-text provider. The provider is reached
// over HTTP with a signed audio URL; its response shape is not guaranteed,
// so the package normalizes every known variant into a plain transcript
// string.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrInvalidResult reports a provider response that is neither a string nor
// an object exposing a recognized text field.
var ErrInvalidResult = errors.New("transcription failed or returned invalid result")

// Client transcribes audio reachable at a signed URL.
type Client interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Config holds provider settings.
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
		cfg: cfg,
		// Transcribing a long visit recording can take a while.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type transcribeRequest struct {
	Model    string `json:"model"`
	AudioURL string `json:"audio_url"`
}

// Transcribe submits the audio URL and returns the normalized transcript.
// Transport errors and 5xx responses are retried with exponential backoff;
// 4xx responses and malformed results fail immediately.
func (c *HTTPClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if c.cfg.APIURL == "" {
		return "", fmt.Errorf("speech-to-text API URL is not configured")
	}

	body, err := json.Marshal(transcribeRequest{Model: c.cfg.Model, AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcribe request: %w", err)
	}

	var transcript string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("speech-to-text request: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("speech-to-text server error %d: %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("speech-to-text request rejected (%d): %s", resp.StatusCode, respBody))
		}

		text, err := NormalizeResponse(respBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		transcript = text
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return transcript, nil
}

// NormalizeResponse converts a raw provider response body into a plain
// transcript string. Accepted shapes: a bare JSON string, a plain-text
// body, or an object exposing a text, transcription, or output field.
func NormalizeResponse(body []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		// Not JSON at all: some providers return raw text.
		if len(bytes.TrimSpace(body)) > 0 {
			return string(body), nil
		}
		return "", ErrInvalidResult
	}
	return NormalizeResult(v)
}

// NormalizeResult converts a decoded provider result into a transcript
// string, or fails with ErrInvalidResult when no known field is present.
func NormalizeResult(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]interface{}:
		for _, field := range []string{"text", "transcription", "output"} {
			if s, ok := t[field].(string); ok {
				return s, nil
			}
		}
	}
	return "", ErrInvalidResult
}
