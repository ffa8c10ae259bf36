package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PosMetrics records counters for the payment-collection lifecycle.
type PosMetrics struct {
	sessionsCreated *prometheus.CounterVec
	sessionOutcomes *prometheus.CounterVec
	polls           *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	syncResults     *prometheus.CounterVec
	refunds         *prometheus.CounterVec
}

// NewPosMetrics registers the POS metrics on the provided registerer.
func NewPosMetrics(reg prometheus.Registerer) *PosMetrics {
	if reg == nil {
		return &PosMetrics{}
	}
	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sessions_created_total",
		Help: "Payment sessions created, by mode and qr style.",
	}, []string{"mode", "qr_style"})
	sessionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_session_outcomes_total",
		Help: "Terminal session outcomes, by status.",
	}, []string{"status"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_status_polls_total",
		Help: "Status polls issued against the payment backend, by result.",
	}, []string{"result"})
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_status_poll_duration_seconds",
		Help:    "Duration of status polls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_offline_queue_depth",
		Help: "Payments currently parked in the offline queue.",
	})
	syncResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_offline_sync_items_total",
		Help: "Offline queue items drained, by result.",
	}, []string{"result"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_refunds_total",
		Help: "Refund attempts, by result.",
	}, []string{"result"})
	reg.MustRegister(sessionsCreated, sessionOutcomes, polls, pollDuration, queueDepth, syncResults, refunds)
	return &PosMetrics{
		sessionsCreated: sessionsCreated,
		sessionOutcomes: sessionOutcomes,
		polls:           polls,
		pollDuration:    pollDuration,
		queueDepth:      queueDepth,
		syncResults:     syncResults,
		refunds:         refunds,
	}
}

// IncSessionCreated counts one created session.
func (p *PosMetrics) IncSessionCreated(mode, qrStyle string) {
	if p == nil || p.sessionsCreated == nil {
		return
	}
	p.sessionsCreated.WithLabelValues(normalizeLabel(mode), normalizeLabel(qrStyle)).Inc()
}

// IncSessionOutcome counts one terminal outcome.
func (p *PosMetrics) IncSessionOutcome(status string) {
	if p == nil || p.sessionOutcomes == nil {
		return
	}
	p.sessionOutcomes.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPoll counts one status poll by result (ok, error, terminal).
func (p *PosMetrics) IncPoll(result string) {
	if p == nil || p.polls == nil {
		return
	}
	p.polls.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObservePollDuration records how long a status read took.
func (p *PosMetrics) ObservePollDuration(mode string, duration time.Duration) {
	if p == nil || p.pollDuration == nil {
		return
	}
	p.pollDuration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

// SetQueueDepth publishes the current offline queue length.
func (p *PosMetrics) SetQueueDepth(depth int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(depth))
}

// IncSyncItem counts one drained offline item by result (succeeded, failed).
func (p *PosMetrics) IncSyncItem(result string) {
	if p == nil || p.syncResults == nil {
		return
	}
	p.syncResults.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncRefund counts one refund attempt by result (succeeded, rejected, failed).
func (p *PosMetrics) IncRefund(result string) {
	if p == nil || p.refunds == nil {
		return
	}
	p.refunds.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
