package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/meow-bot-auth/config"
	"github.com/onnwee/meow-bot-auth/joinlist"
)

func TestRunFailsWithoutSecret(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")

	done := make(chan error, 1)
	go func() { done <- run(t.Context()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "TWITCH_CLIENT_SECRET") {
			t.Fatalf("run() error = %v, want missing secret", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() should return before serving when the secret is missing")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_SECRET", "shh")
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("JOIN_LIST_PATH", filepath.Join(t.TempDir(), "channels_to_join.txt"))
	t.Setenv("TWITCH_TOKEN_URL", "http://127.0.0.1:1/oauth2/token")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestOpenJoinListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels_to_join.txt")
	backend, err := openJoinList(t.Context(), &config.Config{JoinListBackend: config.BackendFile, JoinListPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer backend.close()
	fs, ok := backend.store.(*joinlist.FileStore)
	if !ok {
		t.Fatalf("store = %T, want *joinlist.FileStore", backend.store)
	}
	if fs.Path() != path {
		t.Errorf("Path() = %q, want %q", fs.Path(), path)
	}
	if backend.schemaCheck != nil {
		t.Error("file backend should not register a schema check")
	}
}

func TestOpenJoinListPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	backend, err := openJoinList(t.Context(), &config.Config{JoinListBackend: config.BackendPostgres, DBDsn: dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer backend.close()
	if backend.schemaCheck == nil {
		t.Fatal("postgres backend should register a schema check")
	}
	if err := backend.schemaCheck(t.Context()); err != nil {
		t.Errorf("schemaCheck() error = %v", err)
	}
}
