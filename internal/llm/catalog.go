package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ModelInfo describes one model installed on the Ollama server.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Catalog lists models installed on a local Ollama server and probes its
// availability. Only meaningful for the ollama provider; hosted providers
// manage their own model lists.
type Catalog struct {
	host       string
	httpClient *http.Client
}

// NewCatalog creates a catalog for the given Ollama host URL.
func NewCatalog(host string) *Catalog {
	return &Catalog{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Models returns the models installed on the server.
func (c *Catalog) Models(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{Detail: fmt.Sprintf("list models: %s", resp.Status)}
	}

	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &BackendError{Detail: fmt.Sprintf("decode model list: %v", err)}
	}

	return payload.Models, nil
}

// Ping reports whether the server is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	_, err := c.Models(ctx)
	return err
}
