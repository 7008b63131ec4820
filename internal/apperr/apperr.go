// Package apperr defines the structured error kinds used across the audio
// policy core. Every error the core produces is one of these kinds — no
// raw fmt.Errorf escapes a package boundary uncategorized.
package apperr

// Kind classifies an error per the error-handling design. Fatal kinds
// (Configuration, Invariant) are meant to abort initialization or the
// process; the rest are recoverable and logged at the call site.
type Kind string

const (
	// Configuration errors are fatal at startup: unknown zone id, step
	// mismatch within a group, no default config, an address bound to
	// multiple groups, or a primary zone lacking a microphone.
	Configuration Kind = "configuration"

	// Invariant marks a programmer error: interaction-matrix lookup miss,
	// index out of range, a holder referencing an unknown zone. The
	// caller is expected to panic, not recover.
	Invariant Kind = "invariant"

	// TransientHALFault means a remote HAL callback failed; the affected
	// listener is unregistered and focus state is preserved.
	TransientHALFault Kind = "transient_hal_fault"

	// MalformedHALBatch marks one dropped entry from a HAL gain-change
	// batch (unknown zone id); the rest of the batch still applies.
	MalformedHALBatch Kind = "malformed_hal_batch"

	// ClientCallbackFailure means a focus/volume listener callback
	// failed; treated as an implicit abandon/unregister.
	ClientCallbackFailure Kind = "client_callback_failure"

	// DuplicateFocusRequest is not really an error — request() is
	// idempotent for repeat (zone, usage) pairs — but call sites that
	// want to distinguish "re-notified" from "newly granted" use it.
	DuplicateFocusRequest Kind = "duplicate_focus_request"
)

// Error is a structured error carrying a Kind plus context.
type Error struct {
	Kind    Kind
	Message string
	Zone    int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Fatal reports whether e should abort initialization or the process.
func (e *Error) Fatal() bool {
	return e.Kind == Configuration || e.Kind == Invariant
}

// New constructs an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithZone attaches a zone id for logging context and returns e.
func (e *Error) WithZone(zoneID int) *Error {
	e.Zone = zoneID
	return e
}
