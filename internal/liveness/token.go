// Package liveness provides the "is the façade still alive" check the
// engine performs after any call that might have reentrantly destroyed
// it (Design Notes: "Q_EMIT-on-destroyed guard → explicit liveness
// token"). Go has no raw pointers or destructors to dangle, but a
// reentrant handler can still legitimately tear down the façade (an
// embedder that frees resources inside its own Stop handler, say), so the
// engine still needs an explicit, checkable signal rather than assuming
// its receiver is always still meaningful to act on.
package liveness

// Token is a shared liveness cell. The façade owns one and hands a
// reference to the engine; the engine consults Alive() before and after
// every step of its advance loop, and right after the Observer's start,
// stop and failed handlers return.
type Token struct {
	alive bool
}

// New returns a live Token.
func New() *Token {
	return &Token{alive: true}
}

// Alive reports whether the owning façade is still considered usable.
func (t *Token) Alive() bool {
	return t.alive
}

// Kill marks the token dead. Idempotent.
func (t *Token) Kill() {
	t.alive = false
}
