package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCatalogModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"gemma3:4b","size":3338801804,"modified_at":"2025-06-01T10:00:00Z"},
			{"name":"llama2:7b","size":3826793677,"modified_at":"2025-05-12T08:30:00Z"}
		]}`))
	}))
	defer server.Close()

	catalog := NewCatalog(server.URL)
	models, err := catalog.Models(context.Background())
	if err != nil {
		t.Fatalf("Models() error: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "gemma3:4b" {
		t.Errorf("first model = %q, want gemma3:4b", models[0].Name)
	}
}

func TestCatalogModelsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	catalog := NewCatalog(server.URL)
	_, err := catalog.Models(context.Background())

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("got %v, want *BackendError", err)
	}
}

func TestCatalogPingUnreachable(t *testing.T) {
	// Port from a server that has been shut down refuses connections.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	catalog := NewCatalog(url)
	err := catalog.Ping(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("got %v, want ErrBackendUnavailable", err)
	}
}
