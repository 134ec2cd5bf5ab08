package joinlist

import (
	"context"
	"sync"
	"testing"

	"github.com/onnwee/meow-bot-auth/testutil"
)

func TestPostgresStore_AddAndList(t *testing.T) {
	s := NewPostgresStore(testutil.SetupTestDB(t))
	ctx := context.Background()

	for _, login := range []string{"alice", "bob", "Alice"} {
		if _, err := s.Add(ctx, login); err != nil {
			t.Fatalf("Add(%q) error = %v", login, err)
		}
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("List() = %v, want [alice bob]", got)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestPostgresStore_ConcurrentSameLogin(t *testing.T) {
	s := NewPostgresStore(testutil.SetupTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	addedCount := 0
	for i := 0; i < 10; i++ {
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
}
