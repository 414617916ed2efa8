package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// BudgetExceeded indicates the session token budget cannot cover a read
	BudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	// ContextLocked indicates a read was blocked by an active context lock
	ContextLocked ErrorCode = "CONTEXT_LOCKED"
	// HypothesisMismatch indicates a read targets no active hypothesis
	HypothesisMismatch ErrorCode = "HYPOTHESIS_MISMATCH"
	// HypothesisFinal indicates a validate call on an already-resolved hypothesis
	HypothesisFinal ErrorCode = "HYPOTHESIS_FINAL"
	// HypothesisNotFound indicates an unknown hypothesis id
	HypothesisNotFound ErrorCode = "HYPOTHESIS_NOT_FOUND"
	// StateCorrupt indicates a persisted document failed to load and was reset
	StateCorrupt ErrorCode = "STATE_CORRUPT"
	// StateMissing indicates required state has not been initialized
	StateMissing ErrorCode = "STATE_MISSING"
	// FileUnreadable indicates a target file could not be read from disk
	FileUnreadable ErrorCode = "FILE_UNREADABLE"
	// GraphUnavailable indicates no dependency graph has been built
	GraphUnavailable ErrorCode = "GRAPH_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// ReadCheaper suggests re-requesting the read at a cheaper level
	ReadCheaper FixActionType = "read-cheaper"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error or a denied read
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// AdmissionError represents a readgate error with code, message, and suggestions
type AdmissionError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new AdmissionError
func New(code ErrorCode, message string, cause error, fixes []FixAction) *AdmissionError {
	return &AdmissionError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Error implements the error interface
func (e *AdmissionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AdmissionError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AdmissionError) WithDetails(details interface{}) *AdmissionError {
	e.Details = details
	return e
}

// DefaultFixes maps error codes to suggested fix actions
var DefaultFixes = map[ErrorCode][]FixAction{
	BudgetExceeded: {
		{
			Type:        ReadCheaper,
			Description: "Re-request the read at a cheaper level (signatures or metadata)",
		},
		{
			Type:        RunCommand,
			Command:     "readgate budget increase --amount <tokens> --reason \"<why>\"",
			Safe:        true,
			Description: "Request a budget increase with a justification",
		},
	},
	ContextLocked: {
		{
			Type:        RunCommand,
			Command:     "readgate context-lock override -f <file> --reason \"<why>\"",
			Safe:        true,
			Description: "Add an explicit override for this file",
		},
		{
			Type:        RunCommand,
			Command:     "readgate context-lock unlock",
			Safe:        true,
			Description: "Unlock if the context turned out to be insufficient",
		},
	},
	HypothesisMismatch: {
		{
			Type:        RunCommand,
			Command:     "readgate hypothesis add \"<theory>\" --files <file>",
			Safe:        true,
			Description: "Add a hypothesis that targets this file",
		},
	},
	GraphUnavailable: {
		{
			Type:        RunCommand,
			Command:     "readgate graph build",
			Safe:        true,
			Description: "Build the dependency graph",
		},
	},
	StateMissing: {
		{
			Type:        RunCommand,
			Command:     "readgate budget init",
			Safe:        true,
			Description: "Initialize the session state",
		},
	},
}

// FixesFor returns suggested fixes for an error code
func FixesFor(code ErrorCode) []FixAction {
	if fixes, ok := DefaultFixes[code]; ok {
		return fixes
	}
	return nil
}
