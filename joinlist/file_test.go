package joinlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "channels_to_join.txt"))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestFileStore_AddToEmpty(t *testing.T) {
	s := newTestFileStore(t)
	added, err := s.Add(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !added {
		t.Error("Add() added = false, want true")
	}
	if got := readFile(t, s.Path()); got != "alice\n" {
		t.Errorf("file = %q, want %q", got, "alice\n")
	}
}

func TestFileStore_AddDuplicate(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, "alice"); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	added, err := s.Add(ctx, "alice")
	if err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if added {
		t.Error("second Add() added = true, want false")
	}
	if got := readFile(t, s.Path()); got != "alice\n" {
		t.Errorf("file = %q, want a single alice line", got)
	}
}

func TestFileStore_KeepsOrderAndExistingEntries(t *testing.T) {
	s := newTestFileStore(t)
	if err := os.WriteFile(s.Path(), []byte("carol\n\n  dave  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, login := range []string{"alice", "Dave", "bob"} {
		if _, err := s.Add(ctx, login); err != nil {
			t.Fatalf("Add(%q) error = %v", login, err)
		}
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"carol", "dave", "alice", "bob"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if raw := readFile(t, s.Path()); raw != "carol\n\n  dave  \nalice\nbob\n" {
		t.Errorf("existing bytes were rewritten: %q", raw)
	}
}

func TestFileStore_MissingTrailingNewline(t *testing.T) {
	s := newTestFileStore(t)
	if err := os.WriteFile(s.Path(), []byte("carol"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(context.Background(), "alice"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := readFile(t, s.Path()); got != "carol\nalice\n" {
		t.Errorf("file = %q, want %q", got, "carol\nalice\n")
	}
}

func TestFileStore_Normalizes(t *testing.T) {
	s := newTestFileStore(t)
	if _, err := s.Add(context.Background(), "  Alice "); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := readFile(t, s.Path()); got != "alice\n" {
		t.Errorf("file = %q, want %q", got, "alice\n")
	}
}

func TestFileStore_RejectsEmpty(t *testing.T) {
	s := newTestFileStore(t)
	if _, err := s.Add(context.Background(), "   "); !errors.Is(err, ErrEmptyLogin) {
		t.Errorf("Add() error = %v, want ErrEmptyLogin", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("file should not be created for a rejected login, stat err = %v", err)
	}
}

func TestFileStore_ConcurrentSameLogin(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	addedCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := s.Add(ctx, "newchannel")
			if err != nil {
				t.Errorf("Add() error = %v", err)
				return
			}
			if added {
				mu.Lock()
				addedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if addedCount != 1 {
		t.Errorf("added %d times, want exactly 1", addedCount)
	}
	if got := readFile(t, s.Path()); got != "newchannel\n" {
		t.Errorf("file = %q, want one line", got)
	}
}

func TestFileStore_ListMissingFile(t *testing.T) {
	s := newTestFileStore(t)
	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestFileStore_AddUnwritablePath(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", "channels.txt"))
	if _, err := s.Add(context.Background(), "alice"); err == nil {
		t.Error("Add() into a missing directory should fail")
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when the directory is missing")
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	s := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Add(ctx, "alice"); !errors.Is(err, context.Canceled) {
		t.Errorf("Add() error = %v, want context.Canceled", err)
	}
}

func TestNormalizeLogin(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alice", "alice", false},
		{" ALICE\t", "alice", false},
		{"", "", true},
		{"a\nb", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeLogin(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeLogin(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeLogin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
