// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Auth rejection reasons reported by the session guard.
const (
	ReasonNoToken      = "no_token"
	ReasonInvalidToken = "invalid_token"
	ReasonUserGone     = "user_gone"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncSignup()
	IncLogin(success bool)

	// Session guard metrics
	IncAuthRejected(reason string)
	IncIdentityCacheHit()
	IncIdentityCacheMiss()

	// Password hashing
	ObserveHashDuration(duration time.Duration)

	// Transaction metrics
	IncTransactionCreated(kind string)
	IncTransactionDeleted(kind string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
