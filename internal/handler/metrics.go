package handler

import (
	"fmt"
	"net/http"

	"github.com/moneytrail/moneytrail/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "moneytrail_signups_total %d\n", snap.Signups)
	writeMetric(w, "moneytrail_logins_total{result=\"success\"} %d\n", snap.LoginSuccesses)
	writeMetric(w, "moneytrail_logins_total{result=\"failure\"} %d\n", snap.LoginFailures)

	writeMetric(w, "moneytrail_auth_rejected_total{reason=%q} %d\n", metrics.ReasonNoToken, snap.AuthRejectedNoToken)
	writeMetric(w, "moneytrail_auth_rejected_total{reason=%q} %d\n", metrics.ReasonInvalidToken, snap.AuthRejectedInvalid)
	writeMetric(w, "moneytrail_auth_rejected_total{reason=%q} %d\n", metrics.ReasonUserGone, snap.AuthRejectedUserGone)

	writeMetric(w, "moneytrail_identity_cache_hits_total %d\n", snap.IdentityCacheHits)
	writeMetric(w, "moneytrail_identity_cache_misses_total %d\n", snap.IdentityCacheMisses)

	writeMetric(w, "moneytrail_password_hash_duration_seconds_count %d\n", snap.HashDurationCount)
	writeMetric(w, "moneytrail_password_hash_duration_seconds_sum %.6f\n", float64(snap.HashDurationTotalNs)/1e9)

	writeMetric(w, "moneytrail_transactions_created_total{type=\"income\"} %d\n", snap.IncomesCreated)
	writeMetric(w, "moneytrail_transactions_created_total{type=\"expense\"} %d\n", snap.ExpensesCreated)
	writeMetric(w, "moneytrail_transactions_deleted_total{type=\"income\"} %d\n", snap.IncomesDeleted)
	writeMetric(w, "moneytrail_transactions_deleted_total{type=\"expense\"} %d\n", snap.ExpensesDeleted)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
