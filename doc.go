// Package backgroundsvc embeds the lifecycle of a long-running background
// program inside a host event loop.
//
// It mediates between three concerns: the operating system's service
// manager protocol (on platforms that have one), a foreground "console"
// mode that reacts to terminal and session signals, and user code that
// performs startup and shutdown work asynchronously. The result is a
// single, linearised state progression with well-defined callbacks and
// error recovery.
//
// # Architecture
//
//	┌─────────────────────────────┐
//	│          Service             │  Public façade: options, events,
//	│  (this package)               │  SetStarted/SetStopped/IgnoreError
//	└─────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────┐
//	│      internal/engine         │  Reentrancy-safe state machine
//	└─────────────────────────────┘
//	           ↓ dispatches to
//	┌─────────────────────────────┐
//	│  ServicePlatform / Console    │  Registered via Registry.Register*,
//	│  Platform / EventLoopCtrl    │  selected by priority + detection
//	└─────────────────────────────┘
//
// Embedders hold exactly one Service for the process lifetime. See
// platform/servicewindows, platform/servicesystemd, platform/console and
// platform/loopctl for the reference backends shipped in this module, and
// reporters/kafka and reporters/redisstate for optional fleet-observability
// sinks.
//
// The engine itself never performs I/O, never runs an event loop, and
// never blocks; all of that is the responsibility of the backends an
// embedder wires in.
package backgroundsvc
