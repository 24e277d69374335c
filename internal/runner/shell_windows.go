//go:build windows

package runner

import (
	"os"
	"os/exec"
)

// shellCommand wraps script for the Windows command interpreter.
func shellCommand(script string) *exec.Cmd {
	// #nosec G204
	return exec.Command("cmd", "/c", script)
}

func forwardedSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func signalExitCode(os.Signal) int { return 130 }

func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
