package engine

// classifyAndHandlePendingError runs the two-axis filter from spec.md
// §4.1.3 against e.pendingError, then either silently discards it (and,
// for the one case that means degrading to console, redirects startup)
// or surfaces it to the Observer as a recoverable or fatal error.
func (e *Engine) classifyAndHandlePendingError() bool {
	raw := e.pendingError
	e.pendingError = nil

	if e.state.Target == TargetStopped {
		// Already unwinding; nothing left that cares about this error.
		return true
	}

	if raw.err.Kind == ErrNotSystemService {
		degrade := e.opts.WithRunningAsConsoleApplication && !e.opts.NoRunningAsConsoleApplication
		if degrade {
			return e.fallbackToConsole()
		}
	}

	return e.surface(raw)
}

// surface reports a latched error to the Observer and applies its
// outcome. failed_to_run is always fatal. not_system_service and
// failed_to_retrieve_configuration are recoverable: the Observer may call
// IgnoreError to continue, though failed_to_retrieve_configuration always
// continues regardless (spec.md §4.1.1 step 4 — the configuration is not
// required for serving).
func (e *Engine) surface(raw *rawError) bool {
	recoverable := raw.err.Kind.Recoverable()

	e.userError = raw.err
	e.processingRecoverableError = recoverable
	e.errorIgnored = false

	handled := e.obs.OnFailed(raw.err, recoverable)
	if !e.token.Alive() {
		return false
	}

	ignored := handled && e.errorIgnored
	e.processingRecoverableError = false
	e.userError = nil
	if ignored {
		e.log.Info("Ignoring the error.")
	}

	if raw.err.Kind == ErrFailedToRetrieveConfiguration {
		// Proceeds regardless of the listener's decision: a missing or
		// stale configuration record never gates startup.
		return true
	}

	if recoverable && ignored {
		if raw.err.Kind == ErrNotSystemService {
			// There is no service platform left to continue with (Check
			// failed or none was detected); "continue serving" for this
			// kind can only mean the console branch, the same destination
			// with_running_as_console_application reaches automatically.
			return e.fallbackToConsole()
		}
		return true
	}

	e.state.Target = TargetStopped
	return true
}
