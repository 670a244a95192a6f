package backgroundsvc

import "backgroundsvc/internal/engine"

// Phase, Target, and ServingState mirror spec.md §3 exactly. They are
// aliases of the engine's canonical definitions so the façade and the
// engine never need to convert between two copies of the same value.
type (
	Phase        = engine.Phase
	Target       = engine.Target
	ServingState = engine.ServingState
)

const (
	PhaseNone     = engine.PhaseNone
	PhaseStarting = engine.PhaseStarting
	PhaseServing  = engine.PhaseServing
	PhaseStopping = engine.PhaseStopping
	PhaseStopped  = engine.PhaseStopped
)

const (
	TargetNone     = engine.TargetNone
	TargetServing  = engine.TargetServing
	TargetStopped  = engine.TargetStopped
)

// ServiceConfiguration holds the four textual fields retrieved from the
// service platform during startup. Populated at most once; immutable
// thereafter. A nil *ServiceConfiguration means retrieval was skipped or
// failed non-fatally.
type ServiceConfiguration = engine.ServiceConfiguration

// ErrorKind tags a ServiceError.
type ErrorKind = engine.ErrorKind

const (
	// ErrNotSystemService means the process does not appear to have been
	// launched by the OS service manager. Recoverable.
	ErrNotSystemService = engine.ErrNotSystemService
	// ErrFailedToRetrieveConfiguration means the platform could not
	// answer the configuration query. Recoverable.
	ErrFailedToRetrieveConfiguration = engine.ErrFailedToRetrieveConfiguration
	// ErrFailedToRun is a fatal backend failure.
	ErrFailedToRun = engine.ErrFailedToRun
)

// ServiceError is a tagged, human-readable error raised by a backend.
type ServiceError = engine.ServiceError

// NewServiceError constructs a ServiceError of the given kind.
func NewServiceError(kind ErrorKind, message string) *ServiceError {
	return engine.NewServiceError(kind, message)
}

// SystemEventAction tags a SystemEvent. The enum is intentionally left
// extensible: the Qt source this module was ported from documents
// reload_configuration and pause as prospective actions it never
// implemented; callers constructing SystemEvents for future backends may
// use any non-zero string without waiting on a release of this module.
type SystemEventAction = engine.SystemEventAction

// ActionStop is the only action the engine currently interprets. Any
// other action is queued and drained identically but never mapped to a
// target change.
const ActionStop = engine.ActionStop

// SystemEvent is an out-of-band notification relayed by a platform
// backend, such as an interrupt signal or a session-end event.
type SystemEvent = engine.SystemEvent
