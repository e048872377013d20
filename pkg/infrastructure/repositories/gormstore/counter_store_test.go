package gormstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// openTestStore connects to the database named by STOREREQ_TEST_POSTGRES_DSN
// and skips the test when it is unset
func openTestStore(t *testing.T) *CounterStore {
	t.Helper()
	dsn := os.Getenv("STOREREQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STOREREQ_TEST_POSTGRES_DSN not set")
	}
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testKey returns a key no other run has touched
func testKey(t *testing.T) repositories.CounterKey {
	t.Helper()
	key := repositories.CounterKey{Prefix: fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000), Period: "2410"}
	return key
}

func TestCounterStore_Postgres(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	key := testKey(t)
	t.Cleanup(func() { _ = store.Reset(ctx, key) })

	if current, err := store.Current(ctx, key); err != nil || current != 0 {
		t.Fatalf("Expected unused counter at 0, got %d (%v)", current, err)
	}

	for want := int64(1); want <= 2; want++ {
		got, err := store.Increment(ctx, key)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Errorf("Increment = %d, want %d", got, want)
		}
	}

	if err := store.RaiseTo(ctx, key, 1); err != nil {
		t.Fatalf("RaiseTo failed: %v", err)
	}
	if err := store.RaiseTo(ctx, key, 41); err != nil {
		t.Fatalf("RaiseTo failed: %v", err)
	}
	if next, _ := store.Increment(ctx, key); next != 42 {
		t.Errorf("Expected 42 after raise, got %d", next)
	}

	if err := store.Reset(ctx, key); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if current, _ := store.Current(ctx, key); current != 0 {
		t.Errorf("Expected 0 after reset, got %d", current)
	}
}

func TestCounterStore_PostgresConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	key := testKey(t)
	t.Cleanup(func() { _ = store.Reset(ctx, key) })

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				v, err := store.Increment(ctx, key)
				if err != nil {
					t.Errorf("Increment failed: %v", err)
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("Expected %d distinct values, got %d", workers*perWorker, len(seen))
	}
}
