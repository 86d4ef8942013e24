package payouts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tapify/tapify-backend/pkg/logger"
)

type fakeLockStore struct {
	mu         sync.Mutex
	values     map[string]string
	setErr     error
	releaseErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) ReleaseLock(ctx context.Context, key, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return false, f.releaseErr
	}
	if f.values[key] != owner {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func (f *fakeLockStore) LockKey(scope, id string) string {
	return "test:lock:" + scope + ":" + id
}

func TestLocalGuardRefusesConcurrentAcquire(t *testing.T) {
	guard := newLocalGuard()
	jobID := uuid.New()

	release, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := guard.Acquire(context.Background(), jobID); !errors.Is(err, ErrTriggerInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if _, err := guard.Acquire(context.Background(), uuid.New()); err != nil {
		t.Fatalf("other jobs must not be blocked: %v", err)
	}

	release()
	release()
	if guard.size() != 1 {
		t.Fatalf("expected only the unrelated job to remain, got %d", guard.size())
	}
	again, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected reacquire after release: %v", err)
	}
	again()
}

func TestLocalGuardAllowsSingleWinner(t *testing.T) {
	guard := newLocalGuard()
	jobID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Acquire(context.Background(), jobID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected one winner, got %d", winners)
	}
}

func TestRedisGuardSharesLockAcrossInstances(t *testing.T) {
	store := newFakeLockStore()
	first, err := NewRedisGuard(store, time.Minute, nil)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	second, err := NewRedisGuard(store, time.Minute, nil)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	jobID := uuid.New()

	release, err := first.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := second.Acquire(context.Background(), jobID); !errors.Is(err, ErrTriggerInFlight) {
		t.Fatalf("expected in-flight error from second instance, got %v", err)
	}

	release()
	if len(store.values) != 0 {
		t.Fatalf("expected lock to be deleted, got %v", store.values)
	}
	if _, err := second.Acquire(context.Background(), jobID); err != nil {
		t.Fatalf("expected second instance to acquire after release: %v", err)
	}
}

func TestRedisGuardKeepsForeignLockOnRelease(t *testing.T) {
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, nil)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	jobID := uuid.New()

	release, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	key := store.LockKey("payout_trigger", jobID.String())
	store.values[key] = "another-owner"

	release()
	if store.values[key] != "another-owner" {
		t.Fatalf("release must not delete a lock owned elsewhere")
	}
}

func TestRedisGuardLogsFailedRelease(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, logg)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	jobID := uuid.New()

	release, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	store.releaseErr = errors.New("redis down")
	release()

	out := logs.String()
	if !strings.Contains(out, "payout.lock_release_failed") || !strings.Contains(out, "redis down") {
		t.Fatalf("expected release failure to be logged, got %s", out)
	}
	if !strings.Contains(out, jobID.String()) {
		t.Fatalf("expected payout job id in log, got %s", out)
	}

	// the local claim is dropped even when redis fails
	store.releaseErr = nil
	store.values = map[string]string{}
	if _, err := guard.Acquire(context.Background(), jobID); err != nil {
		t.Fatalf("expected reacquire after failed release: %v", err)
	}
}

func TestRedisGuardLogsUnownedRelease(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, logg)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	jobID := uuid.New()

	release, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	store.values[store.LockKey("payout_trigger", jobID.String())] = "another-owner"
	release()

	if !strings.Contains(logs.String(), "payout.lock_release_not_owned") {
		t.Fatalf("expected unowned release warning, got %s", logs.String())
	}
}

func TestRedisGuardFailsClosedOnStoreError(t *testing.T) {
	store := newFakeLockStore()
	store.setErr = errors.New("redis down")
	guard, err := NewRedisGuard(store, 0, nil)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	jobID := uuid.New()

	if _, err := guard.Acquire(context.Background(), jobID); err == nil || errors.Is(err, ErrTriggerInFlight) {
		t.Fatalf("expected store error, got %v", err)
	}

	store.setErr = nil
	release, err := guard.Acquire(context.Background(), jobID)
	if err != nil {
		t.Fatalf("local claim must be released after store error: %v", err)
	}
	release()
}

func TestNewRedisGuardRequiresStore(t *testing.T) {
	if _, err := NewRedisGuard(nil, time.Minute, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
