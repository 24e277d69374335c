package record

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"cmdtrack/internal/lino"
)

// Status of a tracked command execution. The only transition is
// StatusExecuting -> StatusExecuted and it is terminal.
type Status string

const (
	StatusExecuting Status = "executing"
	StatusExecuted  Status = "executed"
)

// ExitCodeStale marks records force-finished by the stale sweep: the owner
// process died without reporting an exit code.
const ExitCodeStale = -1

func (s Status) String() string { return string(s) }

// Record is the persisted state of one command execution. UUID, Command,
// LogPath, WorkingDirectory, Shell and Platform are immutable after
// creation; Complete mutates the record exactly once.
type Record struct {
	UUID             string
	PID              int // 0 when unknown
	Status           Status
	ExitCode         *int // present iff Status == StatusExecuted
	Command          string
	LogPath          string
	StartTime        time.Time
	EndTime          *time.Time // nil until completion
	WorkingDirectory string
	Shell            string
	Platform         string
	Options          *lino.Object // open metadata, may be nil
}

// New creates an executing record for command, snapshotting the current
// working directory, shell and platform.
func New(command string) *Record {
	wd, _ := os.Getwd()
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Record{
		UUID:             uuid.NewString(),
		Status:           StatusExecuting,
		Command:          command,
		StartTime:        time.Now().UTC(),
		WorkingDirectory: wd,
		Shell:            shell,
		Platform:         runtime.GOOS,
	}
}

// Complete transitions the record to executed with the given exit code.
func (r *Record) Complete(exitCode int) {
	now := time.Now().UTC()
	r.Status = StatusExecuted
	r.ExitCode = &exitCode
	r.EndTime = &now
}

// Age returns how long ago the record's execution started.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.StartTime)
}

// ToValue converts the record to the codec's value model. Key order is
// fixed so that repeated saves of the same record are byte-stable.
func (r *Record) ToValue() *lino.Object {
	obj := lino.NewObject()
	obj.Set("uuid", r.UUID)
	if r.PID > 0 {
		obj.Set("pid", int64(r.PID))
	} else {
		obj.Set("pid", nil)
	}
	obj.Set("status", string(r.Status))
	if r.ExitCode != nil {
		obj.Set("exitCode", int64(*r.ExitCode))
	} else {
		obj.Set("exitCode", nil)
	}
	obj.Set("command", r.Command)
	obj.Set("logPath", r.LogPath)
	obj.Set("startTime", r.StartTime.Format(time.RFC3339Nano))
	if r.EndTime != nil {
		obj.Set("endTime", r.EndTime.Format(time.RFC3339Nano))
	} else {
		obj.Set("endTime", nil)
	}
	obj.Set("workingDirectory", r.WorkingDirectory)
	obj.Set("shell", r.Shell)
	obj.Set("platform", r.Platform)
	if r.Options != nil {
		obj.Set("options", r.Options)
	} else {
		obj.Set("options", lino.NewObject())
	}
	return obj
}

// FromValue reconstructs a record from a decoded value.
func FromValue(v any) (*Record, error) {
	obj, ok := v.(*lino.Object)
	if !ok {
		return nil, fmt.Errorf("record: expected object, got %T", v)
	}

	r := &Record{}
	r.UUID, _ = getString(obj, "uuid")
	if r.UUID == "" {
		return nil, fmt.Errorf("record: missing uuid")
	}
	if pid, ok := getInt(obj, "pid"); ok {
		r.PID = int(pid)
	}
	status, _ := getString(obj, "status")
	switch Status(status) {
	case StatusExecuting, StatusExecuted:
		r.Status = Status(status)
	default:
		return nil, fmt.Errorf("record %s: invalid status %q", r.UUID, status)
	}
	if code, ok := getInt(obj, "exitCode"); ok {
		c := int(code)
		r.ExitCode = &c
	}
	r.Command, _ = getString(obj, "command")
	r.LogPath, _ = getString(obj, "logPath")

	start, _ := getString(obj, "startTime")
	st, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return nil, fmt.Errorf("record %s: invalid startTime %q: %w", r.UUID, start, err)
	}
	r.StartTime = st
	if end, ok := getString(obj, "endTime"); ok && end != "" {
		et, err := time.Parse(time.RFC3339Nano, end)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid endTime %q: %w", r.UUID, end, err)
		}
		r.EndTime = &et
	}

	r.WorkingDirectory, _ = getString(obj, "workingDirectory")
	r.Shell, _ = getString(obj, "shell")
	r.Platform, _ = getString(obj, "platform")
	if opts, ok := obj.Get("options"); ok {
		if o, ok := opts.(*lino.Object); ok && o.Len() > 0 {
			r.Options = o
		}
	}
	return r, nil
}

// Clone returns a shallow copy with its own ExitCode/EndTime storage, so a
// caller mutating the copy cannot alias the original.
func (r *Record) Clone() *Record {
	cp := *r
	if r.ExitCode != nil {
		c := *r.ExitCode
		cp.ExitCode = &c
	}
	if r.EndTime != nil {
		e := *r.EndTime
		cp.EndTime = &e
	}
	return &cp
}

func getString(obj *lino.Object, key string) (string, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func getInt(obj *lino.Object, key string) (int64, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}
