package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mixtape-sh/mixtape/internal/shared"
)

func TestRegistry(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})

		created := registry.Create("token-1", "user-1")
		if created.ID == "" {
			t.Fatal("expected an assigned session id")
		}

		got, err := registry.Get(created.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Credential != "token-1" || got.User != "user-1" {
			t.Errorf("unexpected session: %+v", got)
		}
	})

	t.Run("Get Unknown", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})

		if _, err := registry.Get("nope"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Get Refreshes Activity", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})

		clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		registry.now = func() time.Time { return clock }

		session := registry.Create("t", "u")

		clock = clock.Add(10 * time.Minute)
		got, err := registry.Get(session.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.LastSeen.Equal(clock) {
			t.Errorf("expected LastSeen %v, got %v", clock, got.LastSeen)
		}
	})

	t.Run("UpdateCredential", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})
		session := registry.Create("old-token", "user-1")

		if err := registry.UpdateCredential(session.ID, "new-token", "user-2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, _ := registry.Get(session.ID)
		if got.Credential != "new-token" || got.User != "user-2" {
			t.Errorf("expected credential replaced, got %+v", got)
		}

		if err := registry.UpdateCredential("missing", "x", "y"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})
		session := registry.Create("t", "u")

		registry.Delete(session.ID)
		if _, err := registry.Get(session.ID); err == nil {
			t.Fatal("expected session to be gone")
		}

		// deleting twice is harmless
		registry.Delete(session.ID)
	})

	t.Run("Sweep Removes Idle Sessions", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{IdleTimeout: 30 * time.Minute})

		clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		registry.now = func() time.Time { return clock }

		stale := registry.Create("t1", "u1")
		fresh := registry.Create("t2", "u2")

		clock = clock.Add(20 * time.Minute)
		if _, err := registry.Get(fresh.ID); err != nil {
			t.Fatalf("touch failed: %v", err)
		}

		clock = clock.Add(15 * time.Minute)
		removed := registry.Sweep()
		if removed != 1 {
			t.Fatalf("expected 1 swept session, got %d", removed)
		}

		if _, err := registry.Get(stale.ID); err == nil {
			t.Error("expected stale session removed")
		}
		if _, err := registry.Get(fresh.ID); err != nil {
			t.Errorf("expected fresh session kept, got %v", err)
		}
	})

	t.Run("List And Len", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})
		registry.Create("t1", "u1")
		registry.Create("t2", "u2")

		if registry.Len() != 2 {
			t.Errorf("expected 2 sessions, got %d", registry.Len())
		}
		if got := len(registry.List()); got != 2 {
			t.Errorf("expected 2 listed sessions, got %d", got)
		}
	})

	t.Run("CloseAll", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{})
		registry.Create("t1", "u1")
		registry.Create("t2", "u2")
		registry.Create("t3", "u3")

		closed := registry.CloseAll(context.Background())
		if closed != 3 {
			t.Errorf("expected 3 closed sessions, got %d", closed)
		}
		if registry.Len() != 0 {
			t.Errorf("expected empty registry, got %d", registry.Len())
		}
	})

	t.Run("Run Sweeps Periodically", func(t *testing.T) {
		registry := NewRegistry(RegistryOpts{
			IdleTimeout:   time.Millisecond,
			SweepInterval: 5 * time.Millisecond,
		})
		registry.Create("t", "u")

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		registry.Run(ctx)

		if registry.Len() != 0 {
			t.Errorf("expected sweeper to clear sessions, got %d", registry.Len())
		}
	})
}
