//go:build windows

package console

import (
	"golang.org/x/sys/windows"

	"backgroundsvc"
)

const (
	ctrlCloseEvent    = 2
	ctrlLogoffEvent   = 5
	ctrlShutdownEvent = 6
)

// installPlatformHandler registers a console control handler that
// translates CTRL_CLOSE/LOGOFF/SHUTDOWN_EVENT into the session-end stop
// event spec.md §4.3 requires, and blocks the Windows notification
// thread until Stop has run, since returning from the handler lets
// Windows tear the process down regardless of work still in flight.
func installPlatformHandler(c *Console) {
	_ = windows.SetConsoleCtrlHandler(windows.HandlerRoutine(consoleCtrlHandler), true)
}

func consoleCtrlHandler(ctrlType uint32) uintptr {
	switch ctrlType {
	case ctrlCloseEvent, ctrlLogoffEvent, ctrlShutdownEvent:
		instanceMu.Lock()
		c := instance
		instanceMu.Unlock()
		if c == nil {
			return 0
		}
		c.notifier.EventReceived(backgroundsvc.SystemEvent{
			Action: backgroundsvc.ActionStop,
			Origin: "session-end",
		})
		<-c.stopped
		return 1
	}
	return 0
}
