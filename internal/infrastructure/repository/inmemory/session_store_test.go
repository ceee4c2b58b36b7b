package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore()
	st := domain.NewConversationState("sess-1", time.Now().UTC())
	st.Profile["name"] = "Jane Doe"

	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the saved state must not leak into the store.
	st.Profile["name"] = "changed"

	got, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Profile["name"] != "Jane Doe" {
		t.Fatalf("store leaked mutation: %q", got.Profile["name"])
	}
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store := NewSessionStore()
	if _, err := store.Load(context.Background(), "missing"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	st := domain.NewConversationState("sess-1", time.Now().UTC())
	_ = store.Save(context.Background(), st)

	if err := store.Delete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "sess-1"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionStoreDeleteMissing(t *testing.T) {
	store := NewSessionStore()
	if err := store.Delete(context.Background(), "missing"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
