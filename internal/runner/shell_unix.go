//go:build !windows

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// shellCommand wraps script for the Unix shell.
func shellCommand(script string) *exec.Cmd {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	// #nosec G204
	return exec.Command(shell, "-c", script)
}

func forwardedSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// signalExitCode follows the shell convention of 128 plus the signal number.
func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

// exitCode reports the child's exit status, mapping death-by-signal to the
// 128+signo convention.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return -1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
