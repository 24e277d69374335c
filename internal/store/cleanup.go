package store

import (
	"fmt"
	"runtime"
	"time"

	"cmdtrack/internal/detector"
	"cmdtrack/internal/metrics"
	"cmdtrack/internal/record"
)

// DefaultMaxAge is how old an executing record may grow before the stale
// sweep reclaims it regardless of liveness.
const DefaultMaxAge = 24 * time.Hour

// CleanupOptions tunes CleanupStale.
type CleanupOptions struct {
	// MaxAge is the age past which an executing record is stale even if
	// liveness cannot be probed (default 24h).
	MaxAge time.Duration
	// DryRun reports candidates without mutating anything.
	DryRun bool
}

// CleanupResult reports what the sweep found and did.
type CleanupResult struct {
	Cleaned int
	Records []*record.Record
	Errors  []string
}

// CleanupStale reclassifies orphaned executing records as executed with
// the abnormal-termination exit code. A record is stale when its owner
// process is provably gone (same platform, dead pid) or when it exceeds
// MaxAge. The mutation re-reads the collection under the write lock so a
// concurrent writer's updates are not clobbered by stale candidates.
func (s *Store) CleanupStale(opts CleanupOptions) CleanupResult {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var res CleanupResult
	now := time.Now().UTC()
	for _, rec := range s.GetExecuting() {
		if s.isStale(rec, now, maxAge) {
			res.Records = append(res.Records, rec)
		}
	}

	if opts.DryRun || len(res.Records) == 0 {
		res.Cleaned = len(res.Records)
		if opts.DryRun {
			s.log.Debug("stale sweep dry run", "candidates", len(res.Records))
		}
		return res
	}

	lock := NewLockManager(s.lockPath)
	if !lock.Acquire(s.lockTimeout) {
		metrics.IncLockTimeout()
		res.Cleaned = 0
		res.Errors = append(res.Errors, ErrLockTimeout.Error())
		return res
	}
	defer lock.Release()

	stale := make(map[string]bool, len(res.Records))
	for _, rec := range res.Records {
		stale[rec.UUID] = true
	}

	res.Cleaned = 0
	current := s.readCollection()
	for _, rec := range current {
		if stale[rec.UUID] && rec.Status == record.StatusExecuting {
			rec.Complete(record.ExitCodeStale)
			res.Cleaned++
		}
	}

	if err := s.writeCollection(current); err != nil {
		res.Cleaned = 0
		res.Errors = append(res.Errors, fmt.Sprintf("cleanup rewrite failed: %v", err))
		return res
	}
	for _, rec := range current {
		if stale[rec.UUID] {
			s.mirrorSave(rec)
		}
	}
	metrics.AddCleaned(res.Cleaned)
	s.log.Debug("stale sweep finished", "cleaned", res.Cleaned)
	return res
}

func (s *Store) isStale(rec *record.Record, now time.Time, maxAge time.Duration) bool {
	// Liveness probing is only meaningful for records written on this
	// platform: a pid from another OS install proves nothing here.
	if rec.PID > 0 && rec.Platform == runtime.GOOS {
		alive, err := detector.PIDDetector{PID: rec.PID}.Alive()
		if err == nil && !alive {
			s.log.Debug("stale record: owner process gone", "uuid", rec.UUID, "pid", rec.PID)
			return true
		}
	}
	if rec.Age(now) > maxAge {
		s.log.Debug("stale record: exceeded max age", "uuid", rec.UUID, "age", rec.Age(now))
		return true
	}
	return false
}
