package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ModelManager lists and pulls models on an Ollama server.
type ModelManager struct {
	baseURL string
	client  *http.Client
}

// NewModelManager creates a model manager for the Ollama server at baseURL.
// Pulls can take many minutes, so the default HTTP timeout is disabled.
func NewModelManager(baseURL string, opts ...ClientOption) *ModelManager {
	opts = append([]ClientOption{WithTimeout(0)}, opts...)
	return &ModelManager{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(opts...),
	}
}

// ModelInfo describes a locally available model.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// tagsResponse represents the response from the /api/tags endpoint.
type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// pullRequest represents the request payload for pulling a model.
type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// PullProgress is one status line streamed while a model downloads.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// List returns the models available on the server.
func (m *ModelManager) List(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return tags.Models, nil
}

// HasModel reports whether name is available. A name without a tag also
// matches its ":latest" variant.
func (m *ModelManager) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	for _, model := range models {
		if sameModel(model.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// Pull downloads name unless it is already present. progress, when not nil,
// receives every status line.
func (m *ModelManager) Pull(ctx context.Context, name string, progress func(PullProgress)) error {
	if present, err := m.HasModel(ctx, name); err == nil && present {
		return nil
	}

	body, err := json.Marshal(pullRequest{Model: name, Stream: true})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/pull", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	succeeded := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var status PullProgress
		if err := json.Unmarshal(line, &status); err != nil {
			continue
		}
		if status.Error != "" {
			return fmt.Errorf("pull %s: %s", name, status.Error)
		}
		if progress != nil {
			progress(status)
		}
		if status.Status == "success" {
			succeeded = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull stream: %w", err)
	}
	if !succeeded {
		return fmt.Errorf("pull %s: stream ended without success", name)
	}
	return nil
}

// EnsureModels pulls every missing model in names.
func (m *ModelManager) EnsureModels(ctx context.Context, names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := m.Pull(ctx, name, nil); err != nil {
			return err
		}
	}
	return nil
}

func sameModel(have, want string) bool {
	if have == want {
		return true
	}
	if !strings.Contains(want, ":") {
		return have == want+":latest"
	}
	return false
}
