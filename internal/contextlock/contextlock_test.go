package contextlock

import (
	"testing"

	"readgate/internal/slogutil"
	"readgate/internal/state"
)

func newTestLock(t *testing.T) *Lock {
	t.Helper()
	store := state.NewStore(t.TempDir(), slogutil.NewDiscardLogger())
	return NewLock(store, slogutil.NewDiscardLogger())
}

func TestAttemptRead_UnlockedAllowsEverything(t *testing.T) {
	l := newTestLock(t)

	res, err := l.AttemptRead("src/anything.ts")
	if err != nil {
		t.Fatalf("AttemptRead failed: %v", err)
	}
	if !res.Allowed {
		t.Error("Expected reads to be allowed before any lock is declared")
	}
}

func TestDeclareSufficientContext_GatesReads(t *testing.T) {
	l := newTestLock(t)

	if _, err := l.DeclareSufficientContext("have enough context", []string{"src/parser.ts", "src/lexer.ts"}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	res, _ := l.AttemptRead("src/parser.ts")
	if !res.Allowed {
		t.Error("Expected locked file to be readable")
	}

	// Absolute variant of a locked file still matches
	res, _ = l.AttemptRead("/repo/src/lexer.ts")
	if !res.Allowed {
		t.Error("Expected absolute path variant of locked file to be readable")
	}

	res, _ = l.AttemptRead("src/other.ts")
	if res.Allowed {
		t.Error("Expected unlocked file to be denied")
	}

	st, _ := l.State()
	if len(st.BlockedAttempts) != 1 {
		t.Fatalf("Expected 1 blocked attempt, got %d", len(st.BlockedAttempts))
	}
	if st.BlockedAttempts[0].FilePath != "src/other.ts" {
		t.Errorf("Expected blocked attempt for 'src/other.ts', got %q", st.BlockedAttempts[0].FilePath)
	}
}

func TestDeclareSufficientContext_Twice(t *testing.T) {
	l := newTestLock(t)

	if _, err := l.DeclareSufficientContext("first", nil); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if _, err := l.DeclareSufficientContext("second", nil); err == nil {
		t.Error("Expected error when declaring over an active lock")
	}
}

func TestAddOverride(t *testing.T) {
	l := newTestLock(t)

	if _, err := l.DeclareSufficientContext("enough", []string{"src/a.ts"}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	res, _ := l.AttemptRead("src/b.ts")
	if res.Allowed {
		t.Fatal("Expected b.ts to be denied before override")
	}

	if _, err := l.AddOverride("src/b.ts", "need the config shape"); err != nil {
		t.Fatalf("AddOverride failed: %v", err)
	}

	res, _ = l.AttemptRead("src/b.ts")
	if !res.Allowed {
		t.Error("Expected b.ts to be allowed after override")
	}
}

func TestAddOverride_RequiresActiveLock(t *testing.T) {
	l := newTestLock(t)

	if _, err := l.AddOverride("src/a.ts", "why"); err == nil {
		t.Error("Expected error adding an override without an active lock")
	}
}

func TestUnlock_PreservesHistory(t *testing.T) {
	l := newTestLock(t)

	if _, err := l.DeclareSufficientContext("enough", []string{"src/a.ts"}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if _, err := l.AttemptRead("src/blocked.ts"); err != nil {
		t.Fatalf("AttemptRead failed: %v", err)
	}
	if _, err := l.AddOverride("src/b.ts", "reason"); err != nil {
		t.Fatalf("AddOverride failed: %v", err)
	}

	st, err := l.Unlock()
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if st.SufficientContext {
		t.Error("Expected lock to be cleared")
	}
	if st.DeclaredAt != nil || st.Reason != "" {
		t.Error("Expected declaration fields to be cleared")
	}
	if len(st.BlockedAttempts) != 1 {
		t.Errorf("Expected blocked-attempt history to survive unlock, got %d entries", len(st.BlockedAttempts))
	}
	if len(st.Overrides) != 1 {
		t.Errorf("Expected override history to survive unlock, got %d entries", len(st.Overrides))
	}

	res, _ := l.AttemptRead("src/anything.ts")
	if !res.Allowed {
		t.Error("Expected reads to be allowed after unlock")
	}
}

func TestLock_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store := state.NewStore(dir, slogutil.NewDiscardLogger())

	l1 := NewLock(store, slogutil.NewDiscardLogger())
	if _, err := l1.DeclareSufficientContext("enough", []string{"src/a.ts"}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	l2 := NewLock(state.NewStore(dir, slogutil.NewDiscardLogger()), slogutil.NewDiscardLogger())
	res, err := l2.AttemptRead("src/other.ts")
	if err != nil {
		t.Fatalf("AttemptRead failed: %v", err)
	}
	if res.Allowed {
		t.Error("Expected lock to persist across instances")
	}
}
