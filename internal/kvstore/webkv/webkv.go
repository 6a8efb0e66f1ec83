// Package webkv implements kvstore.Store against a remote HTTP key-value
// bridge. The bridge exposes a partition as a JSON object of key -> stamp.
package webkv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Store talks to the HTTP bridge.
type Store struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Config holds bridge connection settings.
type Config struct {
	// BaseURL of the bridge, e.g. "https://kv.example.com".
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// Timeout bounds each request; a hung bridge must not stall ticks
	// indefinitely. Defaults to 10s.
	Timeout time.Duration
}

// writeRequest is the body for a partition write.
type writeRequest struct {
	Key   string `json:"key"`
	Stamp string `json:"stamp"`
}

// New creates a bridge client.
func New(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("webkv: base url is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Write posts a single key -> stamp record into the partition.
func (s *Store) Write(ctx context.Context, partition, key, stamp string) error {
	body, err := json.Marshal(writeRequest{Key: key, Stamp: stamp})
	if err != nil {
		return fmt.Errorf("marshal write request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.partitionURL(partition), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write %s: %w", partition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("write %s: status %d: %s", partition, resp.StatusCode, msg)
	}
	return nil
}

// Read fetches the full partition snapshot.
func (s *Store) Read(ctx context.Context, partition string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.partitionURL(partition), nil)
	if err != nil {
		return nil, fmt.Errorf("build read request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", partition, err)
	}
	defer resp.Body.Close()

	// An unknown partition reads as empty; existence is implicit in having
	// at least one record.
	if resp.StatusCode == http.StatusNotFound {
		return map[string]string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("read %s: status %d: %s", partition, resp.StatusCode, msg)
	}

	var snapshot map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", partition, err)
	}
	if snapshot == nil {
		snapshot = map[string]string{}
	}
	return snapshot, nil
}

func (s *Store) partitionURL(partition string) string {
	return s.baseURL + "/api/values/" + url.PathEscape(partition)
}

func (s *Store) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}
