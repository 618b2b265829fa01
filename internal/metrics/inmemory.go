package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Signups              uint64
	LoginSuccesses       uint64
	LoginFailures        uint64
	AuthRejectedNoToken  uint64
	AuthRejectedInvalid  uint64
	AuthRejectedUserGone uint64
	IdentityCacheHits    uint64
	IdentityCacheMisses  uint64
	HashDurationCount    uint64
	HashDurationTotalNs  int64
	IncomesCreated       uint64
	IncomesDeleted       uint64
	ExpensesCreated      uint64
	ExpensesDeleted      uint64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	signups              uint64
	loginSuccesses       uint64
	loginFailures        uint64
	authRejectedNoToken  uint64
	authRejectedInvalid  uint64
	authRejectedUserGone uint64
	identityCacheHits    uint64
	identityCacheMisses  uint64
	hashDurationCount    uint64
	hashDurationTotalNs  int64
	incomesCreated       uint64
	incomesDeleted       uint64
	expensesCreated      uint64
	expensesDeleted      uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		Signups:              atomic.LoadUint64(&m.signups),
		LoginSuccesses:       atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:        atomic.LoadUint64(&m.loginFailures),
		AuthRejectedNoToken:  atomic.LoadUint64(&m.authRejectedNoToken),
		AuthRejectedInvalid:  atomic.LoadUint64(&m.authRejectedInvalid),
		AuthRejectedUserGone: atomic.LoadUint64(&m.authRejectedUserGone),
		IdentityCacheHits:    atomic.LoadUint64(&m.identityCacheHits),
		IdentityCacheMisses:  atomic.LoadUint64(&m.identityCacheMisses),
		HashDurationCount:    atomic.LoadUint64(&m.hashDurationCount),
		HashDurationTotalNs:  atomic.LoadInt64(&m.hashDurationTotalNs),
		IncomesCreated:       atomic.LoadUint64(&m.incomesCreated),
		IncomesDeleted:       atomic.LoadUint64(&m.incomesDeleted),
		ExpensesCreated:      atomic.LoadUint64(&m.expensesCreated),
		ExpensesDeleted:      atomic.LoadUint64(&m.expensesDeleted),
	}
}

// IncSignup increments the signup counter.
func (m *InMemoryRecorder) IncSignup() {
	atomic.AddUint64(&m.signups, 1)
}

// IncLogin increments the login success or failure counter.
func (m *InMemoryRecorder) IncLogin(success bool) {
	if success {
		atomic.AddUint64(&m.loginSuccesses, 1)
		return
	}
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncAuthRejected increments the rejection counter for reason.
func (m *InMemoryRecorder) IncAuthRejected(reason string) {
	switch reason {
	case ReasonNoToken:
		atomic.AddUint64(&m.authRejectedNoToken, 1)
	case ReasonInvalidToken:
		atomic.AddUint64(&m.authRejectedInvalid, 1)
	case ReasonUserGone:
		atomic.AddUint64(&m.authRejectedUserGone, 1)
	}
}

// IncIdentityCacheHit increments identity cache hit counter.
func (m *InMemoryRecorder) IncIdentityCacheHit() {
	atomic.AddUint64(&m.identityCacheHits, 1)
}

// IncIdentityCacheMiss increments identity cache miss counter.
func (m *InMemoryRecorder) IncIdentityCacheMiss() {
	atomic.AddUint64(&m.identityCacheMisses, 1)
}

// ObserveHashDuration records how long a hash or verify took.
func (m *InMemoryRecorder) ObserveHashDuration(duration time.Duration) {
	atomic.AddUint64(&m.hashDurationCount, 1)
	atomic.AddInt64(&m.hashDurationTotalNs, duration.Nanoseconds())
}

// IncTransactionCreated increments the created counter for kind.
func (m *InMemoryRecorder) IncTransactionCreated(kind string) {
	switch kind {
	case "income":
		atomic.AddUint64(&m.incomesCreated, 1)
	case "expense":
		atomic.AddUint64(&m.expensesCreated, 1)
	}
}

// IncTransactionDeleted increments the deleted counter for kind.
func (m *InMemoryRecorder) IncTransactionDeleted(kind string) {
	switch kind {
	case "income":
		atomic.AddUint64(&m.incomesDeleted, 1)
	case "expense":
		atomic.AddUint64(&m.expensesDeleted, 1)
	}
}
