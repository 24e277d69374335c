package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cmdtrack/internal/index"
	"cmdtrack/internal/lino"
	"cmdtrack/internal/metrics"
	"cmdtrack/internal/record"
)

// File names inside the base directory.
const (
	DefaultAppFolderName = ".start-command"
	DBFile               = "executions.lino"
	LockFile             = "executions.lock"
)

// ErrLockTimeout is returned when the write lock could not be acquired
// within the configured timeout. The caller decides whether to retry or to
// degrade to "tracking skipped".
var ErrLockTimeout = errors.New("store: timed out acquiring write lock")

// Options configures a Store.
type Options struct {
	// BaseDir is the directory holding the database, lock and index
	// files. Empty means DefaultBaseDir().
	BaseDir string
	// IndexMode selects the secondary-index backend (default auto).
	IndexMode index.Mode
	// LockTimeout bounds write-lock acquisition (default 30s).
	LockTimeout time.Duration
	// Logger receives store diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultBaseDir resolves the application folder: the START_APP_FOLDER
// environment variable when set, otherwise ~/.start-command.
func DefaultBaseDir() string {
	if custom := os.Getenv("START_APP_FOLDER"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, DefaultAppFolderName)
}

// Store owns a directory holding the execution collection. The primary
// flat file is authoritative; the secondary index is mirrored best-effort.
// All mutating operations serialize against other processes through the
// lock file; reads are lock-free.
type Store struct {
	baseDir     string
	dbPath      string
	lockPath    string
	lockTimeout time.Duration
	idx         index.Index
	log         *slog.Logger

	mu     sync.Mutex
	active *record.Record
}

// New creates a Store rooted at opts.BaseDir, creating the directory if
// needed. Index construction failures disable the index rather than
// failing the store.
func New(opts Options) (*Store, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("store: create base dir: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	idx, err := index.New(opts.IndexMode, baseDir)
	if err != nil {
		log.Warn("secondary index disabled", "error", err)
		idx = nil
	}

	s := &Store{
		baseDir:     baseDir,
		dbPath:      filepath.Join(baseDir, DBFile),
		lockPath:    filepath.Join(baseDir, LockFile),
		lockTimeout: timeout,
		idx:         idx,
		log:         log,
	}
	if idx != nil && !idx.Available() {
		s.idx = nil
	}
	return s, nil
}

// BaseDir returns the store's directory.
func (s *Store) BaseDir() string { return s.baseDir }

// DBPath returns the primary database file path.
func (s *Store) DBPath() string { return s.dbPath }

// IndexAvailable reports whether the secondary index is in use.
func (s *Store) IndexAvailable() bool { return s.idx != nil && s.idx.Available() }

// Close releases the index backend, if any.
func (s *Store) Close() error {
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

// readCollection loads the full record list. A missing file is an empty
// collection. An unparseable file is also treated as empty so the store
// stays usable after partial corruption; the damage is logged, not raised.
// Reads must tolerate the file being atomically replaced mid-read, which
// rename-based writes guarantee.
func (s *Store) readCollection() []*record.Record {
	data, err := os.ReadFile(s.dbPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cannot read execution database", "path", s.dbPath, "error", err)
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	v, err := lino.Decode(string(data))
	if err != nil {
		s.log.Warn("execution database is corrupt, treating as empty", "path", s.dbPath, "error", err)
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		s.log.Warn("execution database has unexpected shape, treating as empty", "path", s.dbPath)
		return nil
	}

	recs := make([]*record.Record, 0, len(arr))
	for _, item := range arr {
		rec, err := record.FromValue(item)
		if err != nil {
			s.log.Warn("skipping unreadable record", "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

// writeCollection atomically replaces the primary file with the encoded
// collection. In-place patching is disallowed: a concurrent reader must
// see either the old complete contents or the new ones.
func (s *Store) writeCollection(recs []*record.Record) error {
	arr := make([]any, len(recs))
	for i, rec := range recs {
		arr[i] = rec.ToValue()
	}
	text, err := lino.Encode(arr)
	if err != nil {
		return fmt.Errorf("store: encode collection: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".executions-*.lino")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.dbPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: replace database: %w", err)
	}
	s.log.Debug("wrote execution database", "records", len(recs))
	return nil
}

// Save upserts the record by uuid under the write lock. Once Save returns,
// later reads in any process observe the new state.
func (s *Store) Save(rec *record.Record) error {
	lock := NewLockManager(s.lockPath)
	if !lock.Acquire(s.lockTimeout) {
		metrics.IncLockTimeout()
		return ErrLockTimeout
	}
	defer lock.Release()

	recs := s.readCollection()
	replaced := false
	for i, existing := range recs {
		if existing.UUID == rec.UUID {
			recs[i] = rec.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec.Clone())
	}

	if err := s.writeCollection(recs); err != nil {
		return err
	}
	metrics.IncSave()
	s.mirrorSave(rec)
	return nil
}

// Get returns the record with the given uuid, or nil when absent.
func (s *Store) Get(uuid string) *record.Record {
	for _, rec := range s.readCollection() {
		if rec.UUID == uuid {
			return rec
		}
	}
	return nil
}

// GetAll returns the full collection in file order.
func (s *Store) GetAll() []*record.Record {
	return s.readCollection()
}

// GetByStatus returns records with the given status, in file order.
func (s *Store) GetByStatus(status record.Status) []*record.Record {
	var out []*record.Record
	for _, rec := range s.readCollection() {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// GetExecuting returns the records still marked executing.
func (s *Store) GetExecuting() []*record.Record {
	return s.GetByStatus(record.StatusExecuting)
}

// GetRecent returns up to limit records ordered by start time descending.
// Records sharing a start time keep their collection order.
func (s *Store) GetRecent(limit int) []*record.Record {
	recs := s.readCollection()
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].StartTime.After(recs[j].StartTime)
	})
	if limit >= 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// Delete removes the record with the given uuid under the write lock and
// reports whether it was found.
func (s *Store) Delete(uuid string) (bool, error) {
	lock := NewLockManager(s.lockPath)
	if !lock.Acquire(s.lockTimeout) {
		metrics.IncLockTimeout()
		return false, ErrLockTimeout
	}
	defer lock.Release()

	recs := s.readCollection()
	kept := recs[:0]
	for _, rec := range recs {
		if rec.UUID != uuid {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(recs) {
		return false, nil
	}
	if err := s.writeCollection(kept); err != nil {
		return false, err
	}
	s.mirrorDelete(uuid)
	return true, nil
}

// Clear rewrites the collection as empty and drops the index's backing
// store.
func (s *Store) Clear() error {
	lock := NewLockManager(s.lockPath)
	if !lock.Acquire(s.lockTimeout) {
		metrics.IncLockTimeout()
		return ErrLockTimeout
	}
	defer lock.Release()

	if err := s.writeCollection(nil); err != nil {
		return err
	}
	if s.idx != nil {
		if err := s.idx.Drop(); err != nil {
			metrics.IncIndexError()
			s.log.Error("dropping secondary index failed", "error", err)
		}
	}
	return nil
}

// Stats aggregates the collection.
type Stats struct {
	Total      int `json:"total"`
	Executing  int `json:"executing"`
	Executed   int `json:"executed"`
	Successful int `json:"successful"` // executed with exit code 0
	Failed     int `json:"failed"`     // executed with non-zero exit code

	IndexAvailable bool   `json:"indexAvailable"`
	DBPath         string `json:"dbPath"`
	IndexBackend   string `json:"indexBackend,omitempty"`
}

// Stats returns read-only aggregate counts over the collection.
func (s *Store) Stats() Stats {
	st := Stats{
		IndexAvailable: s.IndexAvailable(),
		DBPath:         s.dbPath,
	}
	if s.idx != nil {
		st.IndexBackend = s.idx.Describe()
	}
	for _, rec := range s.readCollection() {
		st.Total++
		switch rec.Status {
		case record.StatusExecuting:
			st.Executing++
		case record.StatusExecuted:
			st.Executed++
			if rec.ExitCode != nil && *rec.ExitCode == 0 {
				st.Successful++
			} else {
				st.Failed++
			}
		}
	}
	return st
}

// ConsistencyResult reports primary/index agreement.
type ConsistencyResult struct {
	Consistent   bool     `json:"consistent"`
	PrimaryCount int      `json:"primaryCount"`
	IndexCount   int      `json:"indexCount"`
	Errors       []string `json:"errors,omitempty"`
}

// VerifyConsistency compares the primary collection against the secondary
// index. It never mutates either side; a missing index is reported, not
// repaired.
func (s *Store) VerifyConsistency() ConsistencyResult {
	res := ConsistencyResult{Consistent: true}
	res.PrimaryCount = len(s.readCollection())

	if s.idx == nil || !s.idx.Available() {
		res.Errors = append(res.Errors, "secondary index not available")
		return res
	}
	n, err := s.idx.Count()
	if err != nil {
		res.Consistent = false
		res.Errors = append(res.Errors, fmt.Sprintf("querying secondary index failed: %v", err))
		return res
	}
	res.IndexCount = n
	if res.IndexCount != res.PrimaryCount {
		res.Consistent = false
		res.Errors = append(res.Errors,
			fmt.Sprintf("record count mismatch: primary=%d index=%d", res.PrimaryCount, res.IndexCount))
	}
	return res
}

// RegisterActive notes the record a signal handler should finalize if the
// process is interrupted. It replaces any previously registered handle.
func (s *Store) RegisterActive(rec *record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = rec
}

// UnregisterActive clears the registered handle; call it on normal
// completion before the final save.
func (s *Store) UnregisterActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// FinalizeActive marks the registered record executed with the given exit
// code and attempts one best-effort save. It reports whether a handle was
// registered. Intended to be called from a signal handler just before
// exit.
func (s *Store) FinalizeActive(exitCode int) bool {
	s.mu.Lock()
	rec := s.active
	s.active = nil
	s.mu.Unlock()

	if rec == nil {
		return false
	}
	rec.Complete(exitCode)
	if err := s.Save(rec); err != nil {
		s.log.Warn("final save on interrupt failed", "uuid", rec.UUID, "error", err)
	}
	return true
}

// mirrorSave and mirrorDelete forward mutations to the secondary index.
// Index failures are swallowed and logged, never raised: the index is not
// authoritative.
func (s *Store) mirrorSave(rec *record.Record) {
	if s.idx == nil {
		return
	}
	if err := s.idx.Save(rec); err != nil {
		metrics.IncIndexError()
		s.log.Error("mirroring record to secondary index failed", "uuid", rec.UUID, "error", err)
	}
}

func (s *Store) mirrorDelete(uuid string) {
	if s.idx == nil {
		return
	}
	if err := s.idx.Delete(uuid); err != nil {
		metrics.IncIndexError()
		s.log.Error("deleting record from secondary index failed", "uuid", uuid, "error", err)
	}
}
