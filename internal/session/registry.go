package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hilthontt/liveshare/internal/domain"
	"go.uber.org/zap"
)

// startRetries bounds key regeneration when a freshly generated key lands on
// a room that is still active.
const startRetries = 5

// Registry maps room keys to their actors, creating each actor lazily on
// first reference and reusing it for the lifetime of the process.
type Registry struct {
	store      domain.RoomStore
	logger     *zap.SugaredLogger
	ttl        time.Duration
	maxViewers int

	// mu also covers actor creation, so a key's first reference fully loads
	// persisted state before anyone else can observe the actor.
	mu     sync.Mutex
	actors map[string]*Actor
}

func NewRegistry(store domain.RoomStore, logger *zap.SugaredLogger, ttl time.Duration, maxViewers int) *Registry {
	return &Registry{
		store:      store,
		logger:     logger,
		ttl:        ttl,
		maxViewers: maxViewers,
		actors:     make(map[string]*Actor),
	}
}

// Resolve returns the one actor for key, creating and loading it on first
// reference. Requests for a key arriving while its actor is still loading
// wait here rather than being served against empty state.
func (r *Registry) Resolve(ctx context.Context, key string) (*Actor, error) {
	if !domain.ValidKey(key) {
		return nil, domain.ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.actors[key]; ok {
		return a, nil
	}

	a, err := newActor(ctx, key, r.store, r.logger, r.ttl, r.maxViewers)
	if err != nil {
		return nil, err
	}
	r.actors[key] = a
	return a, nil
}

// Start generates a key and host token and initializes the room. A format
// collision with a live room is the only recoverable failure: the key is
// regenerated and never leaks to the caller as success.
func (r *Registry) Start(ctx context.Context, ip string) (key, hostToken string, ttl time.Duration, err error) {
	for attempt := 0; attempt < startRetries; attempt++ {
		key, err = domain.NewRoomKey()
		if err != nil {
			return "", "", 0, err
		}
		hostToken, err = domain.NewHostToken()
		if err != nil {
			return "", "", 0, err
		}

		actor, rerr := r.Resolve(ctx, key)
		if rerr != nil {
			return "", "", 0, rerr
		}

		ierr := actor.Init(ctx, hostToken, ip)
		if ierr == nil {
			r.logger.Infow("room started", "key", key, "ip", ip)
			return key, hostToken, r.ttl, nil
		}
		if !errors.Is(ierr, domain.ErrAlreadyActive) {
			return "", "", 0, ierr
		}
		r.logger.Warnw("room key collision, regenerating", "key", key)
	}

	return "", "", 0, domain.ErrAlreadyActive
}

// Stop routes a stop request to the actor for key.
func (r *Registry) Stop(ctx context.Context, key, hostToken string) error {
	actor, err := r.Resolve(ctx, key)
	if err != nil {
		return err
	}
	return actor.Stop(ctx, hostToken)
}

// Snapshot returns the current state for key. It never creates an actor: a
// key with no live actor is answered straight from the store, and a key that
// was never persisted reads as inactive.
func (r *Registry) Snapshot(ctx context.Context, key string) (domain.Room, error) {
	if !domain.ValidKey(key) {
		return domain.Room{}, domain.ErrInvalidKey
	}

	r.mu.Lock()
	a, ok := r.actors[key]
	r.mu.Unlock()
	if ok {
		return a.Snapshot(), nil
	}

	stored, err := r.store.Load(ctx, key)
	if err != nil {
		return domain.Room{}, err
	}
	if stored == nil {
		return domain.Room{Key: key}, nil
	}
	return *stored, nil
}

// Restore re-creates actors for every room persisted as active, re-arming
// their TTL timers from the stored expiry. Called once at boot, before the
// HTTP listener starts.
func (r *Registry) Restore(ctx context.Context) error {
	keys, err := r.store.ActiveKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := r.Resolve(ctx, key); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		r.logger.Infow("restored active rooms", "count", len(keys))
	}
	return nil
}
