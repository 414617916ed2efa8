package budget

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"readgate/internal/config"
	"readgate/internal/state"
)

const (
	docName    = "budget.json"
	docVersion = 1

	// charsPerToken is the fixed estimation heuristic: one token per four
	// characters of content.
	charsPerToken = 4

	// tokensPerLine estimates a source line at four tokens when only a line
	// count is known.
	tokensPerLine = 4
)

// ReadLevel describes how much of a file a read pulls into context.
type ReadLevel string

const (
	LevelMetadata   ReadLevel = "metadata"
	LevelSignatures ReadLevel = "signatures"
	LevelTypes      ReadLevel = "types"
	LevelChunks     ReadLevel = "chunks"
	LevelFull       ReadLevel = "full"
)

// Multiplier returns the fraction of full-content tokens a level consumes.
func (l ReadLevel) Multiplier() float64 {
	switch l {
	case LevelMetadata:
		return 0.02
	case LevelSignatures:
		return 0.1
	case LevelTypes:
		return 0.2
	case LevelChunks:
		return 0.5
	default:
		return 1.0
	}
}

// IsValid reports whether the level is one of the known read levels.
func (l ReadLevel) IsValid() bool {
	switch l {
	case LevelMetadata, LevelSignatures, LevelTypes, LevelChunks, LevelFull:
		return true
	}
	return false
}

// Status classifies budget pressure.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusExceeded Status = "exceeded"
)

// ReadEntry records a single admitted read. Entries are append-only.
type ReadEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	FilePath        string    `json:"filePath"`
	LineCount       int       `json:"lineCount"`
	EstimatedTokens int       `json:"estimatedTokens"`
	Level           ReadLevel `json:"level"`
	Reason          string    `json:"reason,omitempty"`
}

// Justification records a granted budget increase.
type Justification struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Amount    int       `json:"amount"`
}

// Alert records a budget threshold crossing.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
}

// Session is the persisted budget document. Consumed only grows within a
// session; TotalBudget only grows via justifications.
type Session struct {
	Version        int             `json:"version"`
	SessionID      string          `json:"sessionId"`
	StartedAt      time.Time       `json:"startedAt"`
	TotalBudget    int             `json:"totalBudget"`
	Consumed       int             `json:"consumed"`
	Reads          []ReadEntry     `json:"reads"`
	Justifications []Justification `json:"justifications"`
	Alerts         []Alert         `json:"alerts"`
}

// CheckResult is the outcome of a budget pre-check.
type CheckResult struct {
	Allowed   bool    `json:"allowed"`
	Remaining int     `json:"remaining"`
	Status    Status  `json:"status"`
	Ratio     float64 `json:"ratio"`
}

// RecordResult is the outcome of recording a read.
type RecordResult struct {
	Success bool   `json:"success"`
	Alert   *Alert `json:"alert,omitempty"`
}

// Ledger tracks cumulative estimated token consumption against a session
// limit. Reads are recorded unconditionally; gating is the caller's job via
// CheckBudget first.
type Ledger struct {
	store   *state.Store
	cfg     config.BudgetConfig
	logger  *slog.Logger
	session *Session
}

// NewLedger creates a ledger backed by the given state store.
func NewLedger(store *state.Store, cfg config.BudgetConfig, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, cfg: cfg, logger: logger}
}

// Init starts a fresh session with the given limit, replacing any existing
// session. A non-positive limit falls back to the configured default.
func (l *Ledger) Init(limit int) (*Session, error) {
	if limit <= 0 {
		limit = l.cfg.DefaultLimit
	}

	l.session = &Session{
		Version:        docVersion,
		SessionID:      uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		TotalBudget:    limit,
		Consumed:       0,
		Reads:          []ReadEntry{},
		Justifications: []Justification{},
		Alerts:         []Alert{},
	}

	if err := l.store.Save(docName, l.session); err != nil {
		return nil, err
	}
	return l.session, nil
}

// Session returns the current session, creating one with the default limit
// when no valid document exists.
func (l *Ledger) Session() (*Session, error) {
	if l.session != nil {
		return l.session, nil
	}

	var doc Session
	if l.store.Load(docName, docVersion, &doc) {
		l.session = &doc
		return l.session, nil
	}

	return l.Init(l.cfg.DefaultLimit)
}

// CheckBudget reports whether an estimated read fits the remaining budget.
// The ratio and soft statuses reflect consumption before the proposed read;
// exceeded means the read itself does not fit.
func (l *Ledger) CheckBudget(estimatedTokens int) (CheckResult, error) {
	s, err := l.Session()
	if err != nil {
		return CheckResult{}, err
	}

	remaining := s.TotalBudget - s.Consumed
	ratio := ratioOf(s.Consumed, s.TotalBudget)

	if s.Consumed+estimatedTokens > s.TotalBudget {
		return CheckResult{Allowed: false, Remaining: remaining, Status: StatusExceeded, Ratio: ratio}, nil
	}

	return CheckResult{
		Allowed:   true,
		Remaining: remaining,
		Status:    statusForRatio(ratio, l.cfg),
		Ratio:     ratio,
	}, nil
}

// RecordRead appends a read entry and increments consumption, regardless of
// budget status. Crossing the warning or critical threshold, or exceeding
// the budget, appends an alert.
func (l *Ledger) RecordRead(filePath string, lineCount int, level ReadLevel, reason string) (RecordResult, error) {
	tokens := EstimateTokensForLines(lineCount, level)
	return l.record(filePath, lineCount, tokens, level, reason)
}

// RecordReadContent is RecordRead for callers that know the content length.
func (l *Ledger) RecordReadContent(filePath string, contentLength, lineCount int, level ReadLevel, reason string) (RecordResult, error) {
	tokens := EstimateTokens(contentLength, level)
	return l.record(filePath, lineCount, tokens, level, reason)
}

func (l *Ledger) record(filePath string, lineCount, tokens int, level ReadLevel, reason string) (RecordResult, error) {
	s, err := l.Session()
	if err != nil {
		return RecordResult{}, err
	}

	entry := ReadEntry{
		Timestamp:       time.Now().UTC(),
		FilePath:        filePath,
		LineCount:       lineCount,
		EstimatedTokens: tokens,
		Level:           level,
		Reason:          reason,
	}
	s.Reads = append(s.Reads, entry)
	s.Consumed += tokens

	result := RecordResult{Success: true}

	ratio := ratioOf(s.Consumed, s.TotalBudget)
	status := statusForRatio(ratio, l.cfg)
	if s.Consumed > s.TotalBudget {
		status = StatusExceeded
	}
	if status != StatusOK {
		alert := Alert{
			Timestamp: entry.Timestamp,
			Status:    status,
			Message:   alertMessage(status, ratio, s),
		}
		s.Alerts = append(s.Alerts, alert)
		result.Alert = &alert
		l.logger.Warn("budget threshold crossed",
			"status", string(status),
			"consumed", s.Consumed,
			"totalBudget", s.TotalBudget)
	}

	if err := l.store.Save(docName, s); err != nil {
		return RecordResult{}, err
	}
	return result, nil
}

// RequestIncrease raises the session limit. Increases are always granted;
// the policy is to log every escalation, never to silently deny one.
func (l *Ledger) RequestIncrease(reason string, amount int) (*Session, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("increase amount must be positive, got %d", amount)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("increase requires a reason")
	}

	s, err := l.Session()
	if err != nil {
		return nil, err
	}

	s.TotalBudget += amount
	s.Justifications = append(s.Justifications, Justification{
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Amount:    amount,
	})

	l.logger.Info("budget increase granted",
		"amount", amount,
		"totalBudget", s.TotalBudget,
		"reason", reason)

	if err := l.store.Save(docName, s); err != nil {
		return nil, err
	}
	return s, nil
}

// EstimateTokens converts a content length to estimated tokens for a level.
func EstimateTokens(contentLength int, level ReadLevel) int {
	effective := float64(contentLength) * level.Multiplier()
	return int(math.Ceil(effective / charsPerToken))
}

// EstimateTokensForLines estimates tokens from a line count alone.
func EstimateTokensForLines(lineCount int, level ReadLevel) int {
	effective := float64(lineCount*tokensPerLine) * level.Multiplier()
	return int(math.Ceil(effective))
}

func ratioOf(consumed, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(consumed) / float64(total)
}

func statusForRatio(ratio float64, cfg config.BudgetConfig) Status {
	switch {
	case ratio >= cfg.CriticalRatio:
		return StatusCritical
	case ratio >= cfg.WarningRatio:
		return StatusWarning
	default:
		return StatusOK
	}
}

func alertMessage(status Status, ratio float64, s *Session) string {
	pct := int(math.Round(ratio * 100))
	switch status {
	case StatusExceeded:
		return fmt.Sprintf("Budget exceeded: %d of %d tokens consumed (%d%%)",
			s.Consumed, s.TotalBudget, pct)
	case StatusCritical:
		return fmt.Sprintf("Budget critical: %d%% consumed (%d of %d tokens)",
			pct, s.Consumed, s.TotalBudget)
	default:
		return fmt.Sprintf("Budget warning: %d%% consumed (%d of %d tokens)",
			pct, s.Consumed, s.TotalBudget)
	}
}
