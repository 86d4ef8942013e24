package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redislib "github.com/redis/go-redis/v9"
	redisclient "github.com/tapify/tapify-backend/pkg/redis"
)

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Checker confirms that an access token's jti still maps to a live session
// written by the auth service.
type Checker struct {
	store sessionStore
	keyer sessionKeyer
}

// NewChecker constructs a session checker backed by Redis.
func NewChecker(client *redisclient.Client) (*Checker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Checker{store: client, keyer: client}, nil
}

// HasSession reports whether the provided access ID still has an active session.
func (c *Checker) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := c.store.Get(ctx, c.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
