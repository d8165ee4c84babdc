// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/okidwi/chathub/internal/chat"
	"github.com/okidwi/chathub/internal/collab"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)
	os.Exit(code)
}

func TestSaveAndListTurns(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatal(err)
	}

	archive := NewArchive(testDB, nil)

	length := 9
	entries := []chat.HistoryEntry{
		{Timestamp: "2025-06-14 09:30:12", Model: "gemma3:4b", User: "hello", Assistant: "Hi there!", ResponseLength: &length},
		{Timestamp: "2025-06-14 09:31:45", Model: "gemma3:4b", User: "bye", Assistant: "Goodbye!"},
	}
	for _, entry := range entries {
		if err := archive.SaveTurn(ctx, entry); err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	turns, err := archive.ListTurns(ctx, 10)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}

	byUser := map[string]TurnRecord{}
	for _, turn := range turns {
		byUser[turn.User] = turn
	}
	hello, ok := byUser["hello"]
	if !ok {
		t.Fatal("archived turn for 'hello' not found")
	}
	if hello.Assistant != "Hi there!" {
		t.Errorf("Assistant = %q", hello.Assistant)
	}
	if hello.ResponseLength == nil || *hello.ResponseLength != 9 {
		t.Errorf("ResponseLength = %v, want 9", hello.ResponseLength)
	}
	if bye := byUser["bye"]; bye.ResponseLength != nil {
		t.Errorf("optional field should stay unset, got %v", bye.ResponseLength)
	}
}

func TestListTurnsLimit(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatal(err)
	}

	archive := NewArchive(testDB, nil)
	for i := 0; i < 5; i++ {
		entry := chat.HistoryEntry{
			Timestamp: fmt.Sprintf("2025-06-14 09:3%d:00", i),
			Model:     "gemma3:4b",
			User:      fmt.Sprintf("question %d", i),
			Assistant: "reply",
		}
		if err := archive.SaveTurn(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	turns, err := archive.ListTurns(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 3 {
		t.Errorf("got %d turns, want limit of 3", len(turns))
	}
}

func TestSaveSessionSnapshot(t *testing.T) {
	ctx := context.Background()
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatal(err)
	}

	archive := NewArchive(testDB, nil)
	session := &collab.Session{
		ID:        "abcd1234",
		Name:      "standup",
		Type:      "brainstorm",
		MaxUsers:  5,
		CreatedAt: "2025-06-14 09:30:12",
		Messages: []collab.Message{
			{ID: "m1", User: "amy", Text: "hello", Timestamp: "2025-06-14 09:31:00", Kind: "message"},
		},
	}

	if err := archive.SaveSessionSnapshot(ctx, session); err != nil {
		t.Fatalf("SaveSessionSnapshot: %v", err)
	}

	results, err := testDB.Query(ctx,
		"SELECT session_id, name FROM collab_session WHERE session_id = $id",
		map[string]any{"id": "abcd1234"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(*results) == 0 {
		t.Fatal("no query results")
	}
	rows, ok := (*results)[0].Result.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("snapshot row not found: %+v", (*results)[0].Result)
	}
}
