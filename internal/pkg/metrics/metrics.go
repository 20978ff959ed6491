package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hold lifecycle counters. One of confirmed/cancelled/expired fires per hold;
// payment_failed counts confirm attempts that lost the money step after
// winning the claim (the orphan case).
var (
	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_created_total",
		Help: "Number of holds successfully created.",
	})
	HoldsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_confirmed_total",
		Help: "Number of holds confirmed into paid reservations.",
	})
	HoldsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_cancelled_total",
		Help: "Number of holds cancelled explicitly by the guest.",
	})
	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_expired_total",
		Help: "Number of holds released by the expiration scheduler.",
	})
	HoldsPaymentFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_payment_failed_total",
		Help: "Confirm attempts that claimed the hold but failed payment, leaving an orphaned reservation.",
	})
	ActiveLeases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holds_active_leases",
		Help: "Holds currently claimable in the registry.",
	})
	DocumentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice_document_failures_total",
		Help: "Invoice/document steps that degraded a confirmed reservation.",
	})
)
