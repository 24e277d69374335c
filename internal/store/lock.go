package store

import (
	"encoding/json"
	"os"
	"time"

	"cmdtrack/internal/detector"
)

// Default lock tuning. A lock older than the stale threshold is presumed
// abandoned by a crashed writer and may be reclaimed.
const (
	DefaultLockTimeout = 30 * time.Second
	DefaultLockStale   = 60 * time.Second

	lockRetryInterval = 100 * time.Millisecond
)

// lockInfo is the JSON payload written into the lock file. Mere existence
// of the file is the lock; the content is used only for staleness judgment.
type lockInfo struct {
	PID       int    `json:"pid"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Hostname  string `json:"hostname"`
}

// LockManager provides cross-process mutual exclusion through exclusive
// creation of a lock file. It is the portable baseline of the Lock
// contract; platforms with native advisory locks can substitute a stronger
// primitive without changing the store.
type LockManager struct {
	path       string
	staleAfter time.Duration
	acquired   bool
}

// NewLockManager returns a manager for the lock file at path.
func NewLockManager(path string) *LockManager {
	return &LockManager{path: path, staleAfter: DefaultLockStale}
}

// Acquire tries to take the lock, retrying until timeout. It returns false
// if the lock could not be acquired in time.
//
// Staleness reclamation can break a lock held by a merely slow (not
// crashed) holder; that is an accepted limitation for the intended
// low-contention, single-user deployment.
func (m *LockManager) Acquire(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if info, ok := m.readInfo(); ok && m.isStale(info) {
			_ = os.Remove(m.path)
		}

		f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			info := lockInfo{
				PID:       os.Getpid(),
				Timestamp: time.Now().UnixMilli(),
				Hostname:  hostname(),
			}
			data, _ := json.Marshal(info)
			_, _ = f.Write(data)
			_ = f.Close()
			m.acquired = true
			return true
		}

		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release deletes the lock file if this manager holds it. It is safe to
// call multiple times and must run on every exit path of the guarded scope.
func (m *LockManager) Release() {
	if m.acquired {
		_ = os.Remove(m.path)
		m.acquired = false
	}
}

func (m *LockManager) readInfo() (lockInfo, bool) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return lockInfo{}, false
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		// Unreadable content cannot prove freshness; treat as stale.
		return lockInfo{}, true
	}
	return info, true
}

func (m *LockManager) isStale(info lockInfo) bool {
	if info.Timestamp == 0 {
		return true
	}
	age := time.Since(time.UnixMilli(info.Timestamp))
	if age > m.staleAfter {
		return true
	}
	if info.PID > 0 {
		alive, err := detector.PIDDetector{PID: info.PID}.Alive()
		if err == nil && !alive {
			return true
		}
	}
	return false
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
