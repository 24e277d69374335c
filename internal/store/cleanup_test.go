package store

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"cmdtrack/internal/record"
)

// deadPID returns a pid that belonged to an already-reaped child process.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=TestNothingMatchesThisName")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start child: %v", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Wait()
	return pid
}

func TestCleanupStaleDeadProcess(t *testing.T) {
	s := newTestStore(t)

	rec := record.New("crashed command")
	rec.PID = deadPID(t)
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour})
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	if res.Cleaned != 1 {
		t.Fatalf("cleaned = %d, want 1", res.Cleaned)
	}

	got := s.Get(rec.UUID)
	if got.Status != record.StatusExecuted {
		t.Fatalf("status = %q", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != record.ExitCodeStale {
		t.Fatalf("exit code = %v, want %d", got.ExitCode, record.ExitCodeStale)
	}
	if got.EndTime == nil {
		t.Fatal("end time not set by sweep")
	}
}

func TestCleanupStaleLiveProcessKept(t *testing.T) {
	s := newTestStore(t)

	rec := record.New("still running")
	rec.PID = os.Getpid()
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour})
	if res.Cleaned != 0 || len(res.Records) != 0 {
		t.Fatalf("live recent record swept: %+v", res)
	}
	if got := s.Get(rec.UUID); got.Status != record.StatusExecuting {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestCleanupStaleAgeBoundary(t *testing.T) {
	s := newTestStore(t)
	maxAge := time.Hour
	now := time.Now().UTC()

	fresh := record.New("just under")
	fresh.PID = os.Getpid() // alive, so only age can make it stale
	fresh.StartTime = now.Add(-maxAge + 10*time.Second)
	if err := s.Save(fresh); err != nil {
		t.Fatalf("save: %v", err)
	}

	aged := record.New("just over")
	aged.PID = os.Getpid()
	aged.StartTime = now.Add(-maxAge - 10*time.Second)
	if err := s.Save(aged); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{MaxAge: maxAge})
	if res.Cleaned != 1 || len(res.Records) != 1 {
		t.Fatalf("cleaned = %d records = %d", res.Cleaned, len(res.Records))
	}
	if res.Records[0].UUID != aged.UUID {
		t.Fatalf("swept %q, want %q", res.Records[0].UUID, aged.UUID)
	}

	if got := s.Get(fresh.UUID); got.Status != record.StatusExecuting {
		t.Fatal("under-age record was swept")
	}
	if got := s.Get(aged.UUID); got.Status != record.StatusExecuted {
		t.Fatal("over-age record was not swept")
	}
}

func TestCleanupStaleIgnoresForeignPlatform(t *testing.T) {
	s := newTestStore(t)

	rec := record.New("from another machine")
	rec.PID = deadPID(t)
	rec.Platform = "beos" // dead pid check must not apply
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour})
	if res.Cleaned != 0 {
		t.Fatalf("foreign-platform record swept by liveness: %+v", res)
	}
}

func TestCleanupStaleDryRun(t *testing.T) {
	s := newTestStore(t)

	rec := record.New("crashed command")
	rec.PID = deadPID(t)
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	dry := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour, DryRun: true})
	if dry.Cleaned != 1 || len(dry.Records) != 1 {
		t.Fatalf("dry run candidates = %+v", dry)
	}
	if got := s.Get(rec.UUID); got.Status != record.StatusExecuting {
		t.Fatal("dry run mutated the record")
	}

	// A live run acts on exactly the candidates the dry run reported.
	live := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour})
	if live.Cleaned != 1 || live.Records[0].UUID != dry.Records[0].UUID {
		t.Fatalf("live run differs from dry run: %+v vs %+v", live, dry)
	}
}

func TestCleanupStaleSkipsExecuted(t *testing.T) {
	s := newTestStore(t)
	done := record.New("long finished")
	done.StartTime = time.Now().UTC().Add(-48 * time.Hour)
	done.Complete(0)
	if err := s.Save(done); err != nil {
		t.Fatalf("save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{})
	if res.Cleaned != 0 {
		t.Fatalf("executed record swept: %+v", res)
	}
	if got := s.Get(done.UUID); *got.ExitCode != 0 {
		t.Fatal("executed record mutated")
	}
}
