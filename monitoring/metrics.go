package monitoring

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_claim_outcomes_total",
			Help: "Terminal claim outcomes by status and rejection reason",
		},
		[]string{"status", "reason"},
	)

	quotaRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reward_quota_remaining",
			Help: "Units still available per reward",
		},
		[]string{"reward_id"},
	)

	pendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reward_requests_pending_total",
			Help: "Current number of pending reward requests",
		},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reward_delivery_duration_seconds",
			Help:    "Duration of wallet grant calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"outcome"},
	)
)

type Monitor struct {
	app  core.App
	stop chan struct{}
}

func NewMonitor(app core.App) *Monitor {
	monitor := &Monitor{app: app, stop: make(chan struct{})}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) Close() {
	close(m.stop)
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collectQuotaMetrics()
			m.collectPendingMetrics()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) collectQuotaMetrics() {
	rows := []struct {
		ID       string `db:"id"`
		Quantity int    `db:"quantity"`
		Claimed  int    `db:"claimed"`
	}{}

	err := m.app.DB().
		Select("id", "quantity", "claimed").
		From("rewards").
		All(&rows)
	if err != nil {
		return
	}

	for _, row := range rows {
		remaining := row.Quantity - row.Claimed
		if remaining < 0 {
			remaining = 0
		}
		quotaRemaining.WithLabelValues(row.ID).Set(float64(remaining))
	}
}

func (m *Monitor) collectPendingMetrics() {
	var count struct {
		Total int `db:"total"`
	}

	err := m.app.DB().
		NewQuery("SELECT COUNT(*) AS total FROM reward_requests WHERE status = 'pending'").
		One(&count)
	if err != nil {
		return
	}

	pendingRequests.Set(float64(count.Total))
}

// TrackClaimOutcome records a terminal claim decision.
func (m *Monitor) TrackClaimOutcome(status, reason string) {
	claimOutcomes.WithLabelValues(status, reason).Inc()
}

// TrackDelivery records a wallet grant attempt duration.
func (m *Monitor) TrackDelivery(outcome string, duration time.Duration) {
	deliveryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
