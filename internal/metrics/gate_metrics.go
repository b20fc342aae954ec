// Package metrics exposes Prometheus collectors for the paywall gate and
// the persistence pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gating metrics
	ReadingsAllowedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcana_readings_allowed_total",
			Help: "Total number of readings granted, by allowance source",
		},
		[]string{"source"}, // free, credit
	)

	ReadingsBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_readings_blocked_total",
			Help: "Total number of readings blocked by the paywall",
		},
	)

	// Payment metrics
	CreditsGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_credits_granted_total",
			Help: "Total number of purchased reading credits applied to accounts",
		},
	)

	NatalUnlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_natal_unlocks_total",
			Help: "Total number of accounts that unlocked the natal chart feature",
		},
	)

	DuplicatePaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_duplicate_payments_total",
			Help: "Total number of payment events ignored because their charge ID was already applied",
		},
	)

	// Persistence metrics
	StateFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_state_flushes_total",
			Help: "Total number of successful account state writes",
		},
	)

	StateFlushFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arcana_state_flush_failures_total",
			Help: "Total number of failed account state write attempts",
		},
	)

	AccountsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arcana_accounts_tracked",
			Help: "Number of accounts currently held in the ledger",
		},
	)
)

// RecordReadingAllowed records a granted reading and the balance it was
// taken from.
func RecordReadingAllowed(source string) {
	ReadingsAllowedTotal.WithLabelValues(source).Inc()
}

// RecordReadingBlocked records a request stopped by the paywall.
func RecordReadingBlocked() {
	ReadingsBlockedTotal.Inc()
}

// RecordCreditsGranted records credits applied from a confirmed payment.
func RecordCreditsGranted(delta int) {
	CreditsGrantedTotal.Add(float64(delta))
}

// RecordNatalUnlock records a first-time natal chart unlock.
func RecordNatalUnlock() {
	NatalUnlocksTotal.Inc()
}

// RecordDuplicatePayment records a payment event dropped by the
// idempotency check.
func RecordDuplicatePayment() {
	DuplicatePaymentsTotal.Inc()
}

// RecordStateFlush records a successful write of the account table.
func RecordStateFlush() {
	StateFlushesTotal.Inc()
}

// RecordStateFlushFailure records a failed write attempt of the account table.
func RecordStateFlushFailure() {
	StateFlushFailuresTotal.Inc()
}

// SetAccountsTracked updates the ledger size gauge.
func SetAccountsTracked(n int) {
	AccountsTracked.Set(float64(n))
}
