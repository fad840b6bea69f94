package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.Load(ctx, "thread-a"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() on empty store error = %v, want ErrStateNotFound", err)
	}

	st := NewSession("thread-a", now)
	st.Append(UserMessage("where is my package?", now))
	st.IssueType = "late_delivery"
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if st.Version != 1 {
		t.Fatalf("version after first save = %d, want 1", st.Version)
	}

	loaded, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.IssueType != "late_delivery" || len(loaded.Transcript) != 1 || loaded.Version != 1 {
		t.Fatalf("Load() = %+v", loaded)
	}

	// A writer holding the stale version must lose.
	stale := NewSession("thread-a", now)
	if err := store.Save(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale Save() error = %v, want ErrVersionConflict", err)
	}

	loaded.Append(AgentMessage("Could you share your order id?", now))
	if err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	again, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.Version != 2 || len(again.Transcript) != 2 {
		t.Fatalf("Load() after second save = %+v", again)
	}

	if err := store.Delete(ctx, "thread-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "thread-a"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStoreContract(t *testing.T) {
	t.Parallel()

	store, err := OpenSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessions.db")})
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	storeContract(t, store)
}

func TestMemoryStoreReturnsIsolatedCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	st := NewSession("thread-b", now)
	st.Append(UserMessage("hello", now))
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st.Append(UserMessage("mutated after save", now))

	loaded, err := store.Load(ctx, "thread-b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Transcript) != 1 {
		t.Fatalf("store shares transcript with caller: %d entries", len(loaded.Transcript))
	}
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	var nilSession *Session
	if err := nilSession.Validate(); !errors.Is(err, ErrNilSessionState) {
		t.Fatalf("Validate(nil) = %v", err)
	}
	if err := NewSession(" ", time.Now()).Validate(); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Validate(empty id) = %v", err)
	}

	st := NewSession("t", time.Now())
	st.Append(Message{Role: "system", Content: "x"})
	if err := st.Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("Validate(bad role) = %v", err)
	}
}

func TestSessionLastUserMessage(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSession("t", now)
	if _, ok := LastUserMessage(st.Transcript); ok {
		t.Fatal("expected no user message")
	}
	st.Append(
		UserMessage("first", now),
		AgentMessage("reply", now),
		UserMessage("second", now),
		ToolMessage("fetch_order", "call_ORD1", "{}", now),
	)
	got, ok := LastUserMessage(st.History())
	if !ok || got != "second" {
		t.Fatalf("LastUserMessage() = %q, %v", got, ok)
	}
}
