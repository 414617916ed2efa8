package hypothesis

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"readgate/internal/errors"
	"readgate/internal/paths"
	"readgate/internal/state"
)

const (
	docName    = "hypothesis.json"
	docVersion = 1
)

// Status tracks the lifecycle of a hypothesis. The transition away from
// pending is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

// Hypothesis is a named, falsifiable theory about where relevant code lives.
type Hypothesis struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	TargetFiles   []string `json:"targetFiles"`
	TargetSymbols []string `json:"targetSymbols"`
	Priority      int      `json:"priority"`
	Status        Status   `json:"status"`
	Evidence      string   `json:"evidence,omitempty"`
}

// ReadAttempt logs a read checked against the session. Append-only.
type ReadAttempt struct {
	Timestamp    time.Time `json:"timestamp"`
	FilePath     string    `json:"filePath"`
	Allowed      bool      `json:"allowed"`
	HypothesisID string    `json:"hypothesisId,omitempty"`
}

// Session is the persisted hypothesis document for one investigation.
type Session struct {
	Version        int           `json:"version"`
	SessionID      string        `json:"sessionId"`
	Task           string        `json:"task"`
	CreatedAt      time.Time     `json:"createdAt"`
	Hypotheses     []Hypothesis  `json:"hypotheses"`
	ValidatedFiles []string      `json:"validatedFiles"`
	RejectedFiles  []string      `json:"rejectedFiles"`
	ReadAttempts   []ReadAttempt `json:"readAttempts"`
}

// Active reports whether any hypothesis is still pending.
func (s *Session) Active() bool {
	for _, h := range s.Hypotheses {
		if h.Status == StatusPending {
			return true
		}
	}
	return false
}

// ReadCheck is the outcome of checking a read against the session.
type ReadCheck struct {
	Allowed      bool   `json:"allowed"`
	HypothesisID string `json:"hypothesisId,omitempty"`
	Reason       string `json:"reason"`
}

// Tracker manages hypothesis sessions. Reads are admitted only when they
// serve a validated file or a pending hypothesis target.
type Tracker struct {
	store  *state.Store
	logger *slog.Logger
	doc    *Session
}

// NewTracker creates a tracker backed by the given state store.
func NewTracker(store *state.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Session returns the current session, or nil when none has been started.
func (t *Tracker) Session() *Session {
	if t.doc != nil {
		return t.doc
	}
	var doc Session
	if t.store.Load(docName, docVersion, &doc) {
		t.doc = &doc
		return t.doc
	}
	return nil
}

// Start begins a new investigation session for a task, replacing any
// existing one.
func (t *Tracker) Start(task string) (*Session, error) {
	t.doc = &Session{
		Version:        docVersion,
		SessionID:      uuid.NewString(),
		Task:           task,
		CreatedAt:      time.Now().UTC(),
		Hypotheses:     []Hypothesis{},
		ValidatedFiles: []string{},
		RejectedFiles:  []string{},
		ReadAttempts:   []ReadAttempt{},
	}
	if err := t.store.Save(docName, t.doc); err != nil {
		return nil, err
	}
	return t.doc, nil
}

// AddHypothesis registers a new pending hypothesis. Hypotheses are kept
// sorted by descending priority.
func (t *Tracker) AddHypothesis(description string, targetFiles, targetSymbols []string, priority int) (*Hypothesis, error) {
	doc := t.Session()
	if doc == nil {
		return nil, errors.New(errors.StateMissing,
			"no hypothesis session; run 'readgate hypothesis start' first",
			nil, errors.FixesFor(errors.StateMissing))
	}
	if len(targetFiles) == 0 && len(targetSymbols) == 0 {
		return nil, fmt.Errorf("hypothesis needs at least one target file or symbol")
	}

	h := Hypothesis{
		ID:            uuid.NewString()[:8],
		Description:   description,
		TargetFiles:   normalizeAll(targetFiles),
		TargetSymbols: targetSymbols,
		Priority:      priority,
		Status:        StatusPending,
	}
	doc.Hypotheses = append(doc.Hypotheses, h)
	sort.SliceStable(doc.Hypotheses, func(i, j int) bool {
		return doc.Hypotheses[i].Priority > doc.Hypotheses[j].Priority
	})

	t.logger.Info("hypothesis added", "id", h.ID, "priority", priority, "targets", len(h.TargetFiles))

	if err := t.store.Save(docName, doc); err != nil {
		return nil, err
	}
	return &h, nil
}

// Validate resolves a hypothesis. The transition is terminal: a second call
// on the same id fails and leaves the validated/rejected sets untouched.
// Resolving moves every target file into validatedFiles or rejectedFiles; a
// file never sits in both sets (a later validation wins over an earlier
// rejection and vice versa).
func (t *Tracker) Validate(id string, validated bool, evidence string) (*Hypothesis, error) {
	doc := t.Session()
	if doc == nil {
		return nil, errors.New(errors.StateMissing,
			"no hypothesis session; run 'readgate hypothesis start' first",
			nil, errors.FixesFor(errors.StateMissing))
	}

	idx := -1
	for i := range doc.Hypotheses {
		if doc.Hypotheses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.New(errors.HypothesisNotFound,
			fmt.Sprintf("no hypothesis with id %q", id), nil, nil)
	}

	h := &doc.Hypotheses[idx]
	if h.Status != StatusPending {
		return nil, errors.New(errors.HypothesisFinal,
			fmt.Sprintf("hypothesis %s already resolved as %s", id, h.Status), nil, nil)
	}

	h.Evidence = evidence
	if validated {
		h.Status = StatusValidated
		for _, f := range h.TargetFiles {
			doc.RejectedFiles = removePath(doc.RejectedFiles, f)
			doc.ValidatedFiles = appendUnique(doc.ValidatedFiles, f)
		}
	} else {
		h.Status = StatusRejected
		for _, f := range h.TargetFiles {
			doc.ValidatedFiles = removePath(doc.ValidatedFiles, f)
			doc.RejectedFiles = appendUnique(doc.RejectedFiles, f)
		}
	}

	t.logger.Info("hypothesis resolved", "id", id, "status", string(h.Status))

	if err := t.store.Save(docName, doc); err != nil {
		return nil, err
	}
	return h, nil
}

// IsReadAllowed resolves a read against the session. Order: validated files
// allow, rejected files deny, then pending hypotheses by descending priority
// allow on first target match; anything else is denied. With no session (or
// a fully resolved one) the tracker imposes no gate.
func (t *Tracker) IsReadAllowed(filePath string) (ReadCheck, error) {
	doc := t.Session()
	if doc == nil || !doc.Active() {
		return ReadCheck{Allowed: true, Reason: "no active hypothesis session"}, nil
	}

	check := t.resolve(doc, filePath)

	doc.ReadAttempts = append(doc.ReadAttempts, ReadAttempt{
		Timestamp:    time.Now().UTC(),
		FilePath:     paths.Normalize(filePath),
		Allowed:      check.Allowed,
		HypothesisID: check.HypothesisID,
	})
	if err := t.store.Save(docName, doc); err != nil {
		return ReadCheck{}, err
	}

	return check, nil
}

func (t *Tracker) resolve(doc *Session, filePath string) ReadCheck {
	if paths.MatchAny(filePath, doc.ValidatedFiles) {
		return ReadCheck{Allowed: true, Reason: "file validated by a confirmed hypothesis"}
	}
	if paths.MatchAny(filePath, doc.RejectedFiles) {
		return ReadCheck{Allowed: false, Reason: "file belongs to a rejected hypothesis"}
	}

	// Hypotheses are stored sorted by descending priority.
	for _, h := range doc.Hypotheses {
		if h.Status != StatusPending {
			continue
		}
		if paths.MatchAny(filePath, h.TargetFiles) {
			return ReadCheck{
				Allowed:      true,
				HypothesisID: h.ID,
				Reason:       "targeted by hypothesis: " + h.Description,
			}
		}
	}

	return ReadCheck{Allowed: false, Reason: "not in any hypothesis target"}
}

func normalizeAll(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, paths.Normalize(f))
	}
	return out
}

func appendUnique(set []string, path string) []string {
	for _, p := range set {
		if p == path {
			return set
		}
	}
	return append(set, path)
}

func removePath(set []string, path string) []string {
	out := set[:0]
	for _, p := range set {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}
