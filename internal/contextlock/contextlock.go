package contextlock

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"readgate/internal/paths"
	"readgate/internal/state"
)

const (
	docName    = "contextlock.json"
	docVersion = 1
)

// BlockedAttempt logs a read denied by the lock. Append-only.
type BlockedAttempt struct {
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filePath"`
}

// Override grants a single file passage through an active lock. Append-only.
type Override struct {
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filePath"`
	Reason    string    `json:"reason"`
}

// State is the persisted context-lock document.
type State struct {
	Version           int              `json:"version"`
	SessionID         string           `json:"sessionId"`
	SufficientContext bool             `json:"sufficientContext"`
	DeclaredAt        *time.Time       `json:"declaredAt,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	LockedFiles       []string         `json:"lockedFiles"`
	BlockedAttempts   []BlockedAttempt `json:"blockedAttempts"`
	Overrides         []Override       `json:"overrides"`
}

// AttemptResult is the outcome of checking a read against the lock.
type AttemptResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Lock is a manually declared "context is sufficient" freeze. While set, only
// files captured at declaration time or explicitly overridden may be read.
type Lock struct {
	store  *state.Store
	logger *slog.Logger
	doc    *State
}

// NewLock creates a lock backed by the given state store.
func NewLock(store *state.Store, logger *slog.Logger) *Lock {
	return &Lock{store: store, logger: logger}
}

// State returns the current lock document, creating an unlocked one lazily.
func (l *Lock) State() (*State, error) {
	if l.doc != nil {
		return l.doc, nil
	}

	var doc State
	if l.store.Load(docName, docVersion, &doc) {
		l.doc = &doc
		return l.doc, nil
	}

	l.doc = &State{
		Version:         docVersion,
		SessionID:       uuid.NewString(),
		LockedFiles:     []string{},
		BlockedAttempts: []BlockedAttempt{},
		Overrides:       []Override{},
	}
	return l.doc, nil
}

// DeclareSufficientContext freezes exploration: the given files become the
// locked set, and everything else is denied until Unlock.
func (l *Lock) DeclareSufficientContext(reason string, currentFiles []string) (*State, error) {
	doc, err := l.State()
	if err != nil {
		return nil, err
	}
	if doc.SufficientContext {
		return nil, fmt.Errorf("context is already locked (since %s)", doc.DeclaredAt.Format(time.RFC3339))
	}

	now := time.Now().UTC()
	doc.SufficientContext = true
	doc.DeclaredAt = &now
	doc.Reason = reason
	doc.LockedFiles = normalizeAll(currentFiles)

	l.logger.Info("context declared sufficient",
		"files", len(doc.LockedFiles),
		"reason", reason)

	if err := l.store.Save(docName, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Unlock clears the freeze but preserves the blocked-attempt and override
// history.
func (l *Lock) Unlock() (*State, error) {
	doc, err := l.State()
	if err != nil {
		return nil, err
	}

	doc.SufficientContext = false
	doc.DeclaredAt = nil
	doc.Reason = ""
	doc.LockedFiles = []string{}

	l.logger.Info("context lock released")

	if err := l.store.Save(docName, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AttemptRead checks a path against the lock. Denied attempts are logged into
// the document. When no lock is declared, all reads are allowed.
func (l *Lock) AttemptRead(filePath string) (AttemptResult, error) {
	doc, err := l.State()
	if err != nil {
		return AttemptResult{}, err
	}

	if !doc.SufficientContext {
		return AttemptResult{Allowed: true, Reason: "no context lock declared"}, nil
	}

	if paths.MatchAny(filePath, doc.LockedFiles) {
		return AttemptResult{Allowed: true, Reason: "file was in context at lock time"}, nil
	}
	for _, o := range doc.Overrides {
		if paths.Match(filePath, o.FilePath) {
			return AttemptResult{Allowed: true, Reason: "explicit override: " + o.Reason}, nil
		}
	}

	doc.BlockedAttempts = append(doc.BlockedAttempts, BlockedAttempt{
		Timestamp: time.Now().UTC(),
		FilePath:  paths.Normalize(filePath),
	})
	if err := l.store.Save(docName, doc); err != nil {
		return AttemptResult{}, err
	}

	return AttemptResult{
		Allowed: false,
		Reason:  fmt.Sprintf("context locked since %s: %s", doc.DeclaredAt.Format(time.RFC3339), doc.Reason),
	}, nil
}

// AddOverride grants a file passage through the active lock.
func (l *Lock) AddOverride(filePath, reason string) (*State, error) {
	doc, err := l.State()
	if err != nil {
		return nil, err
	}
	if !doc.SufficientContext {
		return nil, fmt.Errorf("no active context lock to override")
	}

	doc.Overrides = append(doc.Overrides, Override{
		Timestamp: time.Now().UTC(),
		FilePath:  paths.Normalize(filePath),
		Reason:    reason,
	})

	l.logger.Info("context lock override added", "file", filePath, "reason", reason)

	if err := l.store.Save(docName, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func normalizeAll(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, paths.Normalize(f))
	}
	return out
}
