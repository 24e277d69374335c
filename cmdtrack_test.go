package cmdtrack

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(StoreOptions{
		BaseDir:   t.TempDir(),
		IndexMode: IndexOff,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFacadeSaveAndQuery(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord("echo facade")
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := s.Get(rec.UUID); got == nil || got.Command != "echo facade" {
		t.Fatalf("Get = %+v", got)
	}
	if n := len(s.GetByStatus(StatusExecuting)); n != 1 {
		t.Fatalf("executing = %d", n)
	}

	rec.Complete(0)
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st := s.Stats()
	if st.Total != 1 || st.Successful != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestFacadeDeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord("x")
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	found, err := s.Delete(rec.UUID)
	if err != nil || !found {
		t.Fatalf("Delete = %v, %v", found, err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := len(s.GetAll()); n != 0 {
		t.Fatalf("records after clear: %d", n)
	}
}

func TestFacadeCleanup(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecord("ancient")
	rec.StartTime = time.Now().UTC().Add(-48 * time.Hour)
	rec.PID = 0 // liveness unknown, only age applies
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res := s.CleanupStale(CleanupOptions{MaxAge: 24 * time.Hour})
	if res.Cleaned != 1 {
		t.Fatalf("cleaned = %d", res.Cleaned)
	}
	got := s.Get(rec.UUID)
	if got.Status != StatusExecuted {
		t.Fatalf("status = %q", got.Status)
	}
}
