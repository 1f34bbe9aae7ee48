package blobstore

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

// HTTPStore talks to a remote storage service that issues signed upload and
// download URLs (the hosted object-storage API the portal deploys against).
// All requests authenticate with a single service-role key; caller
// authorization happens at the route boundary before this client is ever
// reached.
type HTTPStore struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHTTPStore creates a store client for the given storage API base URL.
func NewHTTPStore(baseURL, serviceKey string) *HTTPStore {
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type signUploadResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type signDownloadRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signDownloadResponse struct {
	SignedURL string `json:"signedURL"`
}

type storageErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// RequestWriteGrant asks the storage service for a signed upload URL for
// the exact path. The service enforces write-once semantics when overwrite
// is false (the default everywhere in this codebase).
func (s *HTTPStore) RequestWriteGrant(ctx context.Context, bucket, path string, opts WriteGrantOptions) (*WriteGrant, error) {
	endpoint := fmt.Sprintf("%s/object/upload/sign/%s/%s", s.baseURL, bucket, path)

	body, err := json.Marshal(map[string]bool{"upsert": opts.Overwrite})
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	var out signUploadResponse
	if err := s.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultWriteGrantTTL
	}

	url := out.URL
	if strings.HasPrefix(url, "/") {
		url = s.baseURL + url
	}

	return &WriteGrant{
		Bucket:    bucket,
		Path:      path,
		URL:       url,
		Token:     out.Token,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// RequestReadGrant asks the storage service for a signed download URL.
func (s *HTTPStore) RequestReadGrant(ctx context.Context, bucket, path string, ttl time.Duration) (*ReadGrant, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	endpoint := fmt.Sprintf("%s/object/sign/%s/%s", s.baseURL, bucket, path)

	body, err := json.Marshal(signDownloadRequest{ExpiresIn: int(ttl.Seconds())})
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	var out signDownloadResponse
	if err := s.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return nil, err
	}

	url := out.SignedURL
	if strings.HasPrefix(url, "/") {
		url = s.baseURL + url
	}

	return &ReadGrant{
		Bucket:    bucket,
		Path:      path,
		URL:       url,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// do executes one storage API call with retries on transient failures.
// 4xx responses are terminal; 5xx and transport errors are retried with
// exponential backoff for a short window.
func (s *HTTPStore) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("storage request: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("storage service error %d: %s", resp.StatusCode, storageMessage(respBody))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("storage request rejected (%d): %s", resp.StatusCode, storageMessage(respBody)))
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode storage response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, policy)
}

func storageMessage(body []byte) string {
	var e storageErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "no error detail"
}
