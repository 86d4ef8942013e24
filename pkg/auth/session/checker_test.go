package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	data map[string]string
	err  error
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func TestCheckerHasSession(t *testing.T) {
	store := &mockStore{data: map[string]string{"sess:abc": "token"}}
	checker := &Checker{store: store, keyer: store}

	ok, err := checker.HasSession(context.Background(), "abc")
	if err != nil || !ok {
		t.Fatalf("expected live session, got %v (%v)", ok, err)
	}

	ok, err = checker.HasSession(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("expected missing session, got %v (%v)", ok, err)
	}
}

func TestCheckerPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("redis down")
	store := &mockStore{err: boom}
	checker := &Checker{store: store, keyer: store}

	if _, err := checker.HasSession(context.Background(), "abc"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCheckerRejectsBlankAccessID(t *testing.T) {
	store := &mockStore{}
	checker := &Checker{store: store, keyer: store}
	if _, err := checker.HasSession(context.Background(), " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}
