//go:build !windows

package console

// installPlatformHandler is a no-op off Windows: SIGINT/SIGTERM via
// os/signal already cover the cases console.go handles uniformly.
func installPlatformHandler(c *Console) {}
