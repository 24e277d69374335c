package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	storeSaves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmdtrack",
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Number of successful record saves.",
		},
	)
	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmdtrack",
			Subsystem: "store",
			Name:      "lock_timeouts_total",
			Help:      "Number of write-lock acquisitions that timed out.",
		},
	)
	staleCleaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmdtrack",
			Subsystem: "store",
			Name:      "cleaned_total",
			Help:      "Number of stale executing records force-finished.",
		},
	)
	indexErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmdtrack",
			Subsystem: "index",
			Name:      "errors_total",
			Help:      "Number of swallowed secondary-index failures.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{storeSaves, lockTimeouts, staleCleaned, indexErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op if Register
// hasn't been called.

func IncSave() {
	if regOK.Load() {
		storeSaves.Inc()
	}
}

func IncLockTimeout() {
	if regOK.Load() {
		lockTimeouts.Inc()
	}
}

func AddCleaned(n int) {
	if regOK.Load() {
		staleCleaned.Add(float64(n))
	}
}

func IncIndexError() {
	if regOK.Load() {
		indexErrors.Inc()
	}
}
