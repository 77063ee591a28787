// Package fault defines the error taxonomy surfaced by the installer.
//
// Component-level filesystem and parsing errors are translated into one of
// these kinds before they reach a caller; raw low-level errors never escape
// the orchestrator boundary.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and for exit-code decisions.
type Kind string

const (
	// UnsupportedRuntime means the host runtime is below the minimum major version.
	UnsupportedRuntime Kind = "unsupported_runtime"
	// DetectionAmbiguous means detection signals conflicted and a documented fallback was applied.
	DetectionAmbiguous Kind = "detection_ambiguous"
	// UnknownVariant means the requested variant id is not in the registry.
	UnknownVariant Kind = "unknown_variant"
	// IncompatibleOverride means an explicit variant override does not support the detected runtime.
	IncompatibleOverride Kind = "incompatible_override"
	// LockHeld means another process holds the install lock for the target directory.
	LockHeld Kind = "lock_held"
	// MissingArtifacts means the selected variant's distribution directory is absent or incomplete.
	MissingArtifacts Kind = "missing_artifacts"
	// PartialWriteFailure means an install step failed mid-way and rollback ran.
	PartialWriteFailure Kind = "partial_write_failure"
)

// Error carries a taxonomy kind, a human-readable message, and an optional
// remediation instruction shown to the user.
type Error struct {
	Kind        Kind
	Message     string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Remediation != "" {
		msg += "\n" + e.Remediation
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithRemediation returns e with the remediation text set.
func (e *Error) WithRemediation(format string, args ...any) *Error {
	e.Remediation = fmt.Sprintf(format, args...)
	return e
}

// KindOf returns the taxonomy kind of err, or an empty Kind when err does not
// carry one.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
