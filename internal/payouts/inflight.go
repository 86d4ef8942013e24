package payouts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tapify/tapify-backend/pkg/instance"
	"github.com/tapify/tapify-backend/pkg/logger"
)

// ErrTriggerInFlight is returned when a trigger for the same job is still running.
var ErrTriggerInFlight = errors.New("payout trigger already in flight")

const defaultLockTTL = 2 * time.Minute

// InFlightGuard refuses concurrent triggers for the same payout job.
type InFlightGuard interface {
	// Acquire claims jobID. The returned release func must be called once the
	// trigger settles.
	Acquire(ctx context.Context, jobID uuid.UUID) (release func(), err error)
}

type localGuard struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewLocalGuard returns a process-local guard.
func NewLocalGuard() InFlightGuard {
	return newLocalGuard()
}

func newLocalGuard() *localGuard {
	return &localGuard{inFlight: make(map[uuid.UUID]struct{})}
}

func (g *localGuard) Acquire(_ context.Context, jobID uuid.UUID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[jobID]; busy {
		return nil, ErrTriggerInFlight
	}
	g.inFlight[jobID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, jobID)
			g.mu.Unlock()
		})
	}, nil
}

func (g *localGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

// lockStore is the subset of the redis client used for cross-instance locks.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	LockKey(scope, id string) string
}

type redisGuard struct {
	local *localGuard
	store lockStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRedisGuard layers a Redis SETNX lock over the process-local guard so
// replicas of the API also refuse duplicate triggers. ttl bounds how long a
// crashed instance can hold a job. logg may be nil.
func NewRedisGuard(store lockStore, ttl time.Duration, logg *logger.Logger) (InFlightGuard, error) {
	if store == nil {
		return nil, errors.New("redis store required for in-flight guard")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &redisGuard{local: newLocalGuard(), store: store, ttl: ttl, logg: logg}, nil
}

func (g *redisGuard) Acquire(ctx context.Context, jobID uuid.UUID) (func(), error) {
	releaseLocal, err := g.local.Acquire(ctx, jobID)
	if err != nil {
		return nil, err
	}

	key := g.store.LockKey("payout_trigger", jobID.String())
	owner := instance.ID() + ":" + uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, owner, g.ttl)
	if err != nil {
		releaseLocal()
		return nil, fmt.Errorf("acquire trigger lock: %w", err)
	}
	if !ok {
		releaseLocal()
		return nil, ErrTriggerInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			defer releaseLocal()
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			g.releaseLock(releaseCtx, jobID, key, owner)
		})
	}, nil
}

// releaseLock is owner-checked; an expired lock may already belong to
// another instance. Failures leave the key to expire on its TTL.
func (g *redisGuard) releaseLock(ctx context.Context, jobID uuid.UUID, key, owner string) {
	released, err := g.store.ReleaseLock(ctx, key, owner)
	if g.logg == nil || (err == nil && released) {
		return
	}
	logCtx := g.logg.WithFields(g.logg.WithPayoutJobID(ctx, jobID.String()), map[string]any{
		"lock_key": key,
		"lock_ttl": g.ttl.String(),
	})
	if err != nil {
		g.logg.Error(logCtx, "payout.lock_release_failed", err)
		return
	}
	g.logg.Warn(logCtx, "payout.lock_release_not_owned")
}
