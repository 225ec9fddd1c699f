package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a Sink backed by prometheus collectors.
type Prometheus struct {
	attempts         *prometheus.CounterVec
	attemptBytes     *prometheus.CounterVec
	attemptDuration  prometheus.Histogram
	successes        prometheus.Counter
	successAttempts  prometheus.Histogram
	successBytes     *prometheus.CounterVec
	overheadPct      prometheus.Histogram
	sourceSwitches   prometheus.Histogram
	rebootCount      prometheus.Histogram
	abandonedTotal   prometheus.Counter
	timeToReboot     prometheus.Histogram
	failedBootsTotal prometheus.Counter
}

// NewPrometheus creates a Prometheus sink and registers its collectors on
// reg. Registration errors are reported by reg itself.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "update_attempts_total",
			Help:      "Update attempts, by terminal failure code and download source.",
		}, []string{"code", "source"}),
		attemptBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "attempt_bytes_downloaded_total",
			Help:      "Payload bytes downloaded per attempt, by download source.",
		}, []string{"source"}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "attempt_duration_uptime_seconds",
			Help:      "Uptime spent in a single update attempt.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		successes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "successful_updates_total",
			Help:      "Updates applied successfully.",
		}),
		successAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "attempts_per_update",
			Help:      "Attempts needed before an update succeeded.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		successBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "update_bytes_downloaded_total",
			Help:      "Lifetime payload bytes per successful update, by download source.",
		}, []string{"source"}),
		overheadPct: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "download_overhead_percentage",
			Help:      "Wasted download bytes relative to the bytes that contributed to success.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
		sourceSwitches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "source_switches_per_update",
			Help:      "Download source switches during one update.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		rebootCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "reboots_per_update",
			Help:      "Device reboots observed during one update attempt cycle.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		abandonedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "abandoned_responses_total",
			Help:      "Update offers abandoned in favor of a newer one.",
		}),
		timeToReboot: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetota",
			Name:      "time_to_reboot_seconds",
			Help:      "Wall time between applying an update and booting into it.",
			Buckets:   prometheus.ExponentialBuckets(60, 4, 10),
		}),
		failedBootsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetota",
			Name:      "failed_boot_attempts_total",
			Help:      "Reboots that landed back on the old version.",
		}),
	}
	reg.MustRegister(
		p.attempts, p.attemptBytes, p.attemptDuration,
		p.successes, p.successAttempts, p.successBytes,
		p.overheadPct, p.sourceSwitches, p.rebootCount,
		p.abandonedTotal, p.timeToReboot, p.failedBootsTotal,
	)
	return p
}

func (p *Prometheus) ReportAttempt(a AttemptReport) {
	p.attempts.WithLabelValues(a.Code.String(), a.Source.String()).Inc()
	p.attemptBytes.WithLabelValues(a.Source.String()).Add(float64(a.BytesDownloaded))
	p.attemptDuration.Observe(a.DurationUptime.Seconds())
}

func (p *Prometheus) ReportSuccessfulUpdate(s SuccessReport) {
	p.successes.Inc()
	p.successAttempts.Observe(float64(s.AttemptCount))
	for source, bytes := range s.BytesBySource {
		if bytes > 0 {
			p.successBytes.WithLabelValues(source.String()).Add(float64(bytes))
		}
	}
	p.overheadPct.Observe(float64(s.OverheadPercentage))
	p.sourceSwitches.Observe(float64(s.SourceSwitchCount))
	p.rebootCount.Observe(float64(s.RebootCount))
}

func (p *Prometheus) ReportAbandonedResponses(count int64) {
	p.abandonedTotal.Add(float64(count))
}

func (p *Prometheus) ReportTimeToReboot(d time.Duration) {
	p.timeToReboot.Observe(d.Seconds())
}

func (p *Prometheus) ReportFailedBootAttempts(count int64) {
	p.failedBootsTotal.Add(float64(count))
}
