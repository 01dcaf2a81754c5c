package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsPosted counts successful postings by transaction type.
	TransactionsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifrs_transactions_posted_total",
			Help: "Transactions posted to the ledger",
		},
		[]string{"type"},
	)

	// LedgerRowsWritten counts ledger rows appended to the hash chain.
	LedgerRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ifrs_ledger_rows_written_total",
			Help: "Ledger rows written",
		},
	)

	// PostingDuration observes the time spent building and writing ledger rows.
	PostingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ifrs_posting_duration_seconds",
			Help:    "Time to post one transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Assignments counts assignment attempts by result: "created" or the
	// kind of rule that rejected it.
	Assignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifrs_assignments_total",
			Help: "Assignment attempts by result",
		},
		[]string{"result"},
	)

	// ForexRealizations counts forex gain/loss journal entries.
	ForexRealizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ifrs_forex_realizations_total",
			Help: "Forex differences realized on assignment",
		},
		[]string{"direction"},
	)

	// IntegrityFailures counts ledger rows whose hash did not verify.
	IntegrityFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ifrs_integrity_failures_total",
			Help: "Ledger rows failing hash verification",
		},
	)
)
