package engine

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"readgate/internal/budget"
	"readgate/internal/config"
	"readgate/internal/contextlock"
	"readgate/internal/errors"
	"readgate/internal/hypothesis"
	"readgate/internal/locality"
	"readgate/internal/paths"
	"readgate/internal/risk"
)

// Verdict is the engine's overall judgment on a read request.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictWarn  Verdict = "warn"
	VerdictDeny  Verdict = "deny"
)

const (
	startingScore    = 100
	defaultLineGuess = 100
)

// BudgetGate pre-checks a read against the token ledger.
type BudgetGate interface {
	CheckBudget(estimatedTokens int) (budget.CheckResult, error)
}

// LockGate checks a read against the context lock.
type LockGate interface {
	AttemptRead(filePath string) (contextlock.AttemptResult, error)
}

// HypothesisGate checks a read against the active hypothesis session.
type HypothesisGate interface {
	IsReadAllowed(filePath string) (hypothesis.ReadCheck, error)
}

// ImportanceSource answers top-K importance membership.
type ImportanceSource interface {
	IsInTopK(path string, k int) bool
}

// RiskSource scores file content risk.
type RiskSource interface {
	Assess(path string) (*risk.Assessment, error)
}

// Collaborators wires the engine's signal sources. Any nil collaborator
// silently disables its check.
type Collaborators struct {
	Budget     BudgetGate
	Lock       LockGate
	Hypotheses HypothesisGate
	Importance ImportanceSource
	Risk       RiskSource
	Locality   locality.Inputs
}

// ReadRequest describes a file read the agent wants to perform.
type ReadRequest struct {
	FilePath string           `json:"filePath"`
	Level    budget.ReadLevel `json:"level"`
	Lines    int              `json:"lines,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// Deduction is one soft-signal penalty applied to the score.
type Deduction struct {
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

// BudgetImpact reports what the read would cost.
type BudgetImpact struct {
	EstimatedTokens int           `json:"estimatedTokens"`
	Remaining       int           `json:"remaining"`
	Status          budget.Status `json:"status"`
}

// Decision is the engine's full answer to a read request.
type Decision struct {
	FilePath    string             `json:"filePath"`
	Allowed     bool               `json:"allowed"`
	Verdict     Verdict            `json:"verdict"`
	Score       int                `json:"score"`
	Deductions  []Deduction        `json:"deductions,omitempty"`
	DenyReason  string             `json:"denyReason,omitempty"`
	Code        errors.ErrorCode   `json:"code,omitempty"`
	Suggestions []errors.FixAction `json:"suggestions,omitempty"`
	Budget      *BudgetImpact      `json:"budget,omitempty"`
}

// Engine composes the admission signals into a single decision. Hard gates
// (budget exhaustion, context lock, hypothesis mismatch) deny outright, in
// that order; the soft signals only deduct from a 100-point score.
type Engine struct {
	cfg     config.EngineConfig
	topK    int
	minRisk risk.Level
	logger  *slog.Logger
	c       Collaborators
}

// New creates an engine. An unparseable MinRiskLevel falls back to low.
func New(cfg config.EngineConfig, topK int, c Collaborators, logger *slog.Logger) *Engine {
	minRisk, err := risk.ParseLevel(cfg.MinRiskLevel)
	if err != nil {
		logger.Warn("invalid minimum risk level, using low", "value", cfg.MinRiskLevel)
		minRisk = risk.LevelLow
	}
	return &Engine{cfg: cfg, topK: topK, minRisk: minRisk, logger: logger, c: c}
}

// Evaluate runs a read request through every enabled gate and signal.
// Signal failures (missing index, unreadable file) degrade open rather than
// blocking the read.
func (e *Engine) Evaluate(req ReadRequest) (*Decision, error) {
	filePath := paths.Normalize(req.FilePath)
	level := req.Level
	if !level.IsValid() {
		level = budget.LevelFull
	}

	d := &Decision{FilePath: filePath, Score: startingScore}

	estimated := budget.EstimateTokensForLines(e.lineCount(filePath, req.Lines), level)

	if e.cfg.CheckBudget && e.c.Budget != nil {
		check, err := e.c.Budget.CheckBudget(estimated)
		if err != nil {
			e.logger.Warn("budget check unavailable", "error", err)
		} else {
			d.Budget = &BudgetImpact{
				EstimatedTokens: estimated,
				Remaining:       check.Remaining,
				Status:          check.Status,
			}
			if !check.Allowed {
				return e.deny(d, errors.BudgetExceeded,
					"read would exceed the session token budget"), nil
			}
			if check.Status == budget.StatusCritical {
				e.deduct(d, e.cfg.BudgetCriticalPenalty, "budget is critical")
			}
		}
	}

	if e.cfg.CheckContextLock && e.c.Lock != nil {
		attempt, err := e.c.Lock.AttemptRead(filePath)
		if err != nil {
			return nil, err
		}
		if !attempt.Allowed {
			return e.deny(d, errors.ContextLocked, attempt.Reason), nil
		}
	}

	if e.cfg.CheckHypothesis && e.c.Hypotheses != nil {
		check, err := e.c.Hypotheses.IsReadAllowed(filePath)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			return e.deny(d, errors.HypothesisMismatch, check.Reason), nil
		}
	}

	if e.cfg.CheckImportance && e.c.Importance != nil {
		if !e.c.Importance.IsInTopK(filePath, e.topK) {
			e.deduct(d, e.cfg.ImportancePenalty, "file is outside the importance top-K",
				errors.FixAction{
					Type:        errors.RunCommand,
					Command:     "readgate importance list",
					Safe:        true,
					Description: "See which files rank higher",
				})
		}
	}

	if e.cfg.CheckRisk && e.c.Risk != nil {
		assessment, err := e.c.Risk.Assess(filePath)
		if err != nil {
			e.logger.Debug("risk assessment unavailable", "file", filePath, "error", err)
		} else if !assessment.Level.AtLeast(e.minRisk) {
			e.deduct(d, e.cfg.RiskPenalty,
				"file risk is "+string(assessment.Level)+", below the minimum level",
				errors.FixAction{
					Type:        errors.RunCommand,
					Command:     "readgate risk -f " + filePath,
					Safe:        true,
					Description: "Review the file's risk breakdown",
				})
		}
	}

	if e.cfg.CheckLocality {
		score := locality.Calculate(filePath, e.c.Locality)
		if score.Total < e.cfg.LocalityThreshold {
			e.deduct(d, e.cfg.LocalityPenalty, "file scores low on task locality",
				errors.FixAction{
					Type:        errors.RunCommand,
					Command:     "readgate locality -f " + filePath,
					Safe:        true,
					Description: "See which locality signals score the file low",
				})
		}
	}

	d.Allowed = true
	d.Verdict = VerdictAllow
	if d.Score < e.cfg.WarnBelowScore {
		d.Verdict = VerdictWarn
		d.Suggestions = append(d.Suggestions, errors.FixAction{
			Type:        errors.ReadCheaper,
			Command:     "readgate optimizer -f " + filePath,
			Safe:        true,
			Description: "Check whether a cheaper read level would serve",
		})
	}
	return d, nil
}

func (e *Engine) deny(d *Decision, code errors.ErrorCode, reason string) *Decision {
	d.Allowed = false
	d.Verdict = VerdictDeny
	d.Score = 0
	d.Code = code
	d.DenyReason = reason
	d.Suggestions = errors.FixesFor(code)
	e.logger.Info("read denied", "file", d.FilePath, "code", code, "reason", reason)
	return d
}

func (e *Engine) deduct(d *Decision, points int, reason string, fixes ...errors.FixAction) {
	if points <= 0 {
		return
	}
	d.Deductions = append(d.Deductions, Deduction{Reason: reason, Points: points})
	d.Suggestions = append(d.Suggestions, fixes...)
	d.Score -= points
	if d.Score < 0 {
		d.Score = 0
	}
}

// lineCount prefers the caller's figure, then the file on disk, then a
// conservative guess.
func (e *Engine) lineCount(filePath string, declared int) int {
	if declared > 0 {
		return declared
	}
	root := e.c.Locality.RepoRoot
	if root != "" {
		if n := countFileLines(filepath.Join(root, filepath.FromSlash(filePath))); n > 0 {
			return n
		}
	}
	return defaultLineGuess
}

func countFileLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
	}
	return count
}
