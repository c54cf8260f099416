package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersSubmittedTotal counts order submission outcomes.
	OrdersSubmittedTotal *prometheus.CounterVec
	// OrdersParkedTotal counts parked order snapshots by outcome.
	OrdersParkedTotal *prometheus.CounterVec
	// PaymentsRecordedTotal counts ledger entry captures by method and outcome.
	PaymentsRecordedTotal *prometheus.CounterVec
	// CouponChecksTotal counts coupon validations by source and outcome.
	CouponChecksTotal *prometheus.CounterVec
	// ReceiptJobsTotal counts receipt print jobs by outcome.
	ReceiptJobsTotal *prometheus.CounterVec
	// SubmitLatency records order submission latency in milliseconds.
	SubmitLatency *prometheus.HistogramVec
	// AttachmentUploadsTotal counts attachment store uploads by outcome.
	AttachmentUploadsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of order submission attempts by fulfillment, payment method and result.",
		}, []string{"fulfillment", "method", "result"})
		OrdersParkedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_parked_total",
			Help:      "Count of parked order snapshots by result.",
		}, []string{"result"})
		PaymentsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Count of payment ledger captures by method and result.",
		}, []string{"method", "result"})
		CouponChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_checks_total",
			Help:      "Count of coupon validations by source and result.",
		}, []string{"source", "result"})
		ReceiptJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_jobs_total",
			Help:      "Count of receipt print jobs by result.",
		}, []string{"result"})
		SubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submit_duration_ms",
			Help:      "Latency of order submission handoffs in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		AttachmentUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_uploads_total",
			Help:      "Count of attachment store uploads by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, OrdersSubmittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersSubmittedTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersParkedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersParkedTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentsRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentsRecordedTotal = v
			}
		})
		mustRegisterCollector(reg, CouponChecksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponChecksTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptJobsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptJobsTotal = v
			}
		})
		mustRegisterCollector(reg, SubmitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SubmitLatency = v
			}
		})
		mustRegisterCollector(reg, AttachmentUploadsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AttachmentUploadsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
