package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/liveshare/internal/domain"
	"go.uber.org/zap"
)

func newTestRegistry(store domain.RoomStore) *Registry {
	return NewRegistry(store, zap.NewNop().Sugar(), time.Hour, 10)
}

func TestRegistryStart(t *testing.T) {
	r := newTestRegistry(newMemStore())

	key, token, ttl, err := r.Start(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !domain.ValidKey(key) {
		t.Errorf("generated key %q does not match the wire format", key)
	}
	if token == "" {
		t.Error("expected a host token")
	}
	if ttl != time.Hour {
		t.Errorf("expected 1h TTL, got %v", ttl)
	}

	room, err := r.Snapshot(context.Background(), key)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !room.Active {
		t.Error("started room should snapshot as active")
	}
}

func TestRegistryResolveReusesActor(t *testing.T) {
	r := newTestRegistry(newMemStore())

	a, err := r.Resolve(context.Background(), "ABC-234")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := r.Resolve(context.Background(), "ABC-234")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a != b {
		t.Error("same key must resolve to the same actor instance")
	}
}

func TestRegistryRejectsMalformedKeys(t *testing.T) {
	r := newTestRegistry(newMemStore())

	malformed := []string{
		"",
		"abc-234",
		"ABC234",
		"ABCD-234",
		"ABC-2345",
		"AIO-234", // I and O are not in the alphabet
		"ABC-101", // 0 and 1 are not in the alphabet
		"ABC_234",
	}
	for _, key := range malformed {
		if _, err := r.Resolve(context.Background(), key); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("Resolve(%q): expected ErrInvalidKey, got %v", key, err)
		}
		if err := r.Stop(context.Background(), key, "token"); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("Stop(%q): expected ErrInvalidKey, got %v", key, err)
		}
		if _, err := r.Snapshot(context.Background(), key); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("Snapshot(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestRegistrySnapshotUnknownRoom(t *testing.T) {
	r := newTestRegistry(newMemStore())

	room, err := r.Snapshot(context.Background(), "ZZZ-999")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if room.Active {
		t.Error("unknown room must snapshot as inactive")
	}
	if room.Content != "" || room.Version != 0 {
		t.Errorf("unknown room must snapshot empty, got %+v", room)
	}
}

func TestRegistrySnapshotDoesNotCreateActors(t *testing.T) {
	r := newTestRegistry(newMemStore())

	if _, err := r.Snapshot(context.Background(), "ZZZ-999"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actors) != 0 {
		t.Errorf("snapshot created %d actor(s)", len(r.actors))
	}
}

func TestRegistryInitCollision(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store)

	a, err := r.Resolve(context.Background(), "ABC-234")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := a.Init(context.Background(), "token-1", ""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// A second init racing onto the same key must fail and leave the
	// winner's state alone.
	if err := a.Init(context.Background(), "token-2", ""); !errors.Is(err, domain.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	stored, _ := store.Load(context.Background(), "ABC-234")
	if stored.HostToken != "token-1" {
		t.Error("losing init overwrote the winner's state")
	}
}

func TestRegistryRestore(t *testing.T) {
	store := newMemStore()
	store.rooms["ABC-234"] = domain.Room{
		Key:       "ABC-234",
		Content:   "hello",
		Version:   3,
		HostToken: "token-1",
		Active:    true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.rooms["DEF-567"] = domain.Room{
		Key:    "DEF-567",
		Active: false,
	}

	r := newTestRegistry(store)
	if err := r.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	r.mu.Lock()
	count := len(r.actors)
	r.mu.Unlock()
	if count != 1 {
		t.Errorf("expected 1 restored actor, got %d", count)
	}

	room, err := r.Snapshot(context.Background(), "ABC-234")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if room.Content != "hello" || room.Version != 3 {
		t.Errorf("restored room lost state: %+v", room)
	}
}
