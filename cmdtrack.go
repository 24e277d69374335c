package cmdtrack

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	cfg "cmdtrack/internal/config"
	"cmdtrack/internal/index"
	"cmdtrack/internal/logger"
	"cmdtrack/internal/metrics"
	"cmdtrack/internal/record"
	"cmdtrack/internal/runner"
	iapi "cmdtrack/internal/server"
	"cmdtrack/internal/store"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Record = record.Record

type Status = record.Status

const (
	StatusExecuting = record.StatusExecuting
	StatusExecuted  = record.StatusExecuted
)

type Stats = store.Stats

type StoreOptions = store.Options

type CleanupOptions = store.CleanupOptions

type CleanupResult = store.CleanupResult

type ConsistencyResult = store.ConsistencyResult

type IndexMode = index.Mode

const (
	IndexAuto   = index.ModeAuto
	IndexClink  = index.ModeClink
	IndexSQLite = index.ModeSQLite
	IndexOff    = index.ModeOff
)

type Config = cfg.Config

type LogConfig = logger.Config

// Store is a thin facade over the internal execution store. It provides a
// stable public API for embedding.
type Store struct{ inner *store.Store }

func Open(opts StoreOptions) (*Store, error) {
	inner, err := store.New(opts)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner}, nil
}

func (s *Store) Save(rec *Record) error               { return s.inner.Save(rec) }
func (s *Store) Get(uuid string) *Record              { return s.inner.Get(uuid) }
func (s *Store) GetAll() []*Record                    { return s.inner.GetAll() }
func (s *Store) GetByStatus(status Status) []*Record  { return s.inner.GetByStatus(status) }
func (s *Store) GetExecuting() []*Record              { return s.inner.GetExecuting() }
func (s *Store) GetRecent(limit int) []*Record        { return s.inner.GetRecent(limit) }
func (s *Store) Delete(uuid string) (bool, error)     { return s.inner.Delete(uuid) }
func (s *Store) Clear() error                         { return s.inner.Clear() }
func (s *Store) Stats() Stats                         { return s.inner.Stats() }
func (s *Store) VerifyConsistency() ConsistencyResult { return s.inner.VerifyConsistency() }
func (s *Store) CleanupStale(o CleanupOptions) CleanupResult {
	return s.inner.CleanupStale(o)
}
func (s *Store) RegisterActive(rec *Record)       { s.inner.RegisterActive(rec) }
func (s *Store) UnregisterActive()                { s.inner.UnregisterActive() }
func (s *Store) FinalizeActive(exitCode int) bool { return s.inner.FinalizeActive(exitCode) }
func (s *Store) BaseDir() string                  { return s.inner.BaseDir() }
func (s *Store) Close() error                     { return s.inner.Close() }

// NewRecord creates an executing record for command with a fresh UUID.
func NewRecord(command string) *Record { return record.New(command) }

// DefaultBaseDir returns the directory holding the database and lock files,
// honoring the START_APP_FOLDER environment variable.
func DefaultBaseDir() string { return store.DefaultBaseDir() }

// Run executes command through the platform shell, tracking it in the store,
// and returns the child's exit code alongside the finalized record.
func (s *Store) Run(command string, log LogConfig, lg *slog.Logger) (int, *Record, error) {
	return runner.New(s.inner, log, lg).Run(command)
}

func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewHTTPServer starts a read-only HTTP server exposing the execution store.
func NewHTTPServer(addr, basePath string, s *Store) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
