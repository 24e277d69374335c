package runner

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"cmdtrack/internal/logger"
	"cmdtrack/internal/record"
	"cmdtrack/internal/store"
)

// Runner executes a shell command while tracking it in the store. The child's
// combined output is streamed to the caller's stdio and, when log capture is
// configured, mirrored into a per-execution log file.
type Runner struct {
	Store *store.Store
	Log   logger.Config
	// Stdout/Stderr default to os.Stdout/os.Stderr when nil.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func New(s *store.Store, log logger.Config, lg *slog.Logger) *Runner {
	if lg == nil {
		lg = slog.Default()
	}
	return &Runner{Store: s, Log: log, Logger: lg}
}

// Run spawns command through the platform shell and blocks until it exits,
// returning the child's exit code. The execution record is saved before the
// caller regains control and finalized on exit; if the store lock cannot be
// taken the command still runs, just untracked. SIGINT and SIGTERM received
// while the child runs are forwarded to it, and the record is finalized with
// the conventional 128+signo code in case this process dies too.
func (r *Runner) Run(command string) (int, *record.Record, error) {
	rec := record.New(command)

	cmd := shellCommand(command)
	cmd.Dir = rec.WorkingDirectory
	cmd.Stdin = os.Stdin

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var capture io.WriteCloser
	if r.Log.Dir != "" || r.Log.Path != "" {
		w, path, err := r.Log.Writer(rec.UUID)
		if err != nil {
			r.Logger.Warn("log capture disabled", "error", err)
		} else {
			capture = w
			rec.LogPath = path
			stdout = io.MultiWriter(stdout, w)
			stderr = io.MultiWriter(stderr, w)
		}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if capture != nil {
			_ = capture.Close()
		}
		return -1, nil, fmt.Errorf("runner: start %q: %w", command, err)
	}
	rec.PID = cmd.Process.Pid

	tracked := true
	if err := r.Store.Save(rec); err != nil {
		// The command is already running; losing tracking beats killing it.
		tracked = false
		r.Logger.Warn("execution not tracked", "uuid", rec.UUID, "error", err)
	}
	if tracked {
		r.Store.RegisterActive(rec)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, forwardedSignals()...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				r.Logger.Debug("forwarding signal", "signal", sig, "pid", rec.PID)
				if tracked {
					r.Store.FinalizeActive(signalExitCode(sig))
				}
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	signal.Stop(sigCh)
	close(done)
	if capture != nil {
		_ = capture.Close()
	}

	code := exitCode(waitErr)
	if tracked {
		r.Store.UnregisterActive()
		rec.Complete(code)
		if err := r.Store.Save(rec); err != nil {
			r.Logger.Warn("completion not persisted", "uuid", rec.UUID, "error", err)
		}
	}
	if waitErr != nil {
		if _, isExit := waitErr.(interface{ ExitCode() int }); !isExit {
			return code, rec, fmt.Errorf("runner: wait: %w", waitErr)
		}
	}
	return code, rec, nil
}
