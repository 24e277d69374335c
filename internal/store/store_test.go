package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cmdtrack/internal/index"
	"cmdtrack/internal/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{
		BaseDir:   t.TempDir(),
		IndexMode: index.ModeOff,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("echo hello")
	rec.PID = 12345
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Get(rec.UUID)
	if got == nil {
		t.Fatal("record not found after save")
	}
	if got.Command != "echo hello" || got.PID != 12345 {
		t.Fatalf("got %+v", got)
	}
	if s.Get("no-such-uuid") != nil {
		t.Fatal("expected nil for unknown uuid")
	}
}

func TestSaveUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("echo hello")
	if err := s.Save(rec); err != nil {
		t.Fatalf("first save: %v", err)
	}
	rec.Complete(0)
	if err := s.Save(rec); err != nil {
		t.Fatalf("second save: %v", err)
	}

	all := s.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
	got := all[0]
	if got.Status != record.StatusExecuted || got.ExitCode == nil || *got.ExitCode != 0 {
		t.Fatalf("latest values not persisted: %+v", got)
	}
}

func TestSaveDoesNotAliasCaller(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("echo hello")
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Command = "mutated after save"
	if got := s.Get(rec.UUID); got.Command != "echo hello" {
		t.Fatalf("store aliased caller memory: %q", got.Command)
	}
}

func TestGetByStatusAndExecuting(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 2; i++ {
		if err := s.Save(record.New("running")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	done := record.New("done")
	done.Complete(0)
	if err := s.Save(done); err != nil {
		t.Fatalf("save: %v", err)
	}

	if n := len(s.GetExecuting()); n != 2 {
		t.Fatalf("executing = %d, want 2", n)
	}
	if n := len(s.GetByStatus(record.StatusExecuted)); n != 1 {
		t.Fatalf("executed = %d, want 1", n)
	}
}

func TestGetRecentOrdersByStartTimeDesc(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, name := range []string{"oldest", "middle", "newest"} {
		rec := record.New(name)
		rec.StartTime = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	recent := s.GetRecent(2)
	if len(recent) != 2 {
		t.Fatalf("len = %d", len(recent))
	}
	if recent[0].Command != "newest" || recent[1].Command != "middle" {
		t.Fatalf("order wrong: %s, %s", recent[0].Command, recent[1].Command)
	}

	if n := len(s.GetRecent(10)); n != 3 {
		t.Fatalf("limit past size: %d", n)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("echo hello")
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := s.Delete(rec.UUID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if s.Get(rec.UUID) != nil {
		t.Fatal("record still present after delete")
	}

	found, err = s.Delete(rec.UUID)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if found {
		t.Fatal("second delete should report not found")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(record.New("x")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := len(s.GetAll()); n != 0 {
		t.Fatalf("records after clear: %d", n)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(record.New("still running")); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok := record.New("ok")
	ok.Complete(0)
	if err := s.Save(ok); err != nil {
		t.Fatalf("save: %v", err)
	}
	bad := record.New("bad")
	bad.Complete(1)
	if err := s.Save(bad); err != nil {
		t.Fatalf("save: %v", err)
	}

	st := s.Stats()
	if st.Total != 3 || st.Executing != 1 || st.Executed != 2 || st.Successful != 1 || st.Failed != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestCorruptDatabaseReadsAsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.DBPath(), []byte("(array (int 1"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if n := len(s.GetAll()); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}

	// The store must stay usable: the next save replaces the corrupt file.
	rec := record.New("recovery")
	if err := s.Save(rec); err != nil {
		t.Fatalf("save after corruption: %v", err)
	}
	if s.Get(rec.UUID) == nil {
		t.Fatal("record not found after recovery save")
	}
}

func TestUnreadableRecordIsSkipped(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(record.New("good")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Append an object with no uuid by hand-crafting the file.
	good := s.GetAll()
	if len(good) != 1 {
		t.Fatalf("setup: %d records", len(good))
	}
	data, err := os.ReadFile(s.DBPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	broken := "(array " + string(data[len("(array "):len(data)-1]) + " (object ((str Zm9v) (int 1))))"
	if err := os.WriteFile(s.DBPath(), []byte(broken), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	all := s.GetAll()
	if len(all) != 1 || all[0].Command != "good" {
		t.Fatalf("expected the one good record, got %d", len(all))
	}
}

func TestSaveLockTimeout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{
		BaseDir:     dir,
		IndexMode:   index.ModeOff,
		LockTimeout: 200 * time.Millisecond,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()

	// Simulate a fresh lock held by a live process (ourselves): not stale,
	// never released.
	holder := NewLockManager(filepath.Join(dir, LockFile))
	if !holder.Acquire(time.Second) {
		t.Fatal("setup: could not take lock")
	}
	defer holder.Release()

	err = s.Save(record.New("blocked"))
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("err = %v, want ErrLockTimeout", err)
	}
}

func TestVerifyConsistencyWithSQLiteIndex(t *testing.T) {
	s, err := New(Options{
		BaseDir:   t.TempDir(),
		IndexMode: index.ModeSQLite,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()

	for i := 0; i < 3; i++ {
		if err := s.Save(record.New("indexed")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	res := s.VerifyConsistency()
	if !res.Consistent {
		t.Fatalf("inconsistent: %+v", res)
	}
	if res.PrimaryCount != 3 || res.IndexCount != 3 {
		t.Fatalf("counts = %d/%d", res.PrimaryCount, res.IndexCount)
	}
}

func TestVerifyConsistencyWithoutIndex(t *testing.T) {
	s := newTestStore(t)
	res := s.VerifyConsistency()
	if !res.Consistent {
		t.Fatal("missing index must not be reported as inconsistent")
	}
	if len(res.Errors) == 0 {
		t.Fatal("missing index should be noted")
	}
}

func TestFinalizeActive(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("interrupted")
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.RegisterActive(rec)
	if !s.FinalizeActive(130) {
		t.Fatal("expected a registered handle")
	}
	got := s.Get(rec.UUID)
	if got.Status != record.StatusExecuted || got.ExitCode == nil || *got.ExitCode != 130 {
		t.Fatalf("interrupt finalization not persisted: %+v", got)
	}

	// Handle is consumed; a second signal has nothing to do.
	if s.FinalizeActive(130) {
		t.Fatal("handle should be consumed")
	}
}

func TestUnregisterActive(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("normal completion")
	s.RegisterActive(rec)
	s.UnregisterActive()
	if s.FinalizeActive(130) {
		t.Fatal("unregistered handle must not be finalized")
	}
}

func TestDefaultBaseDirEnvOverride(t *testing.T) {
	t.Setenv("START_APP_FOLDER", "/custom/dir")
	if got := DefaultBaseDir(); got != "/custom/dir" {
		t.Fatalf("DefaultBaseDir() = %q", got)
	}
	t.Setenv("START_APP_FOLDER", "")
	if got := DefaultBaseDir(); got == "" || got == "/custom/dir" {
		t.Fatalf("DefaultBaseDir() fallback = %q", got)
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	s := newTestStore(t)
	rec := record.New("echo hi")
	rec.UUID = "A"
	if err := s.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Get("A")
	if got == nil || got.Status != record.StatusExecuting || got.ExitCode != nil {
		t.Fatalf("after first save: %+v", got)
	}

	rec.Complete(0)
	if err := s.Save(rec); err != nil {
		t.Fatalf("save after complete: %v", err)
	}
	got = s.Get("A")
	if got.Status != record.StatusExecuted || got.ExitCode == nil || *got.ExitCode != 0 || got.EndTime == nil {
		t.Fatalf("after completion: %+v", got)
	}

	st := s.Stats()
	if st.Total != 1 || st.Executed != 1 || st.Successful != 1 || st.Failed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}
