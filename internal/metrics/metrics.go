package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const namespace = "motionwatch"

// Metrics exports the detection loop as Prometheus series. It is a
// motion.Listener; a nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesAnalyzed    prometheus.Counter
	framesSkipped     prometheus.Counter
	severities        *prometheus.CounterVec
	activations       *prometheus.CounterVec
	activationFrames  *prometheus.HistogramVec
	recordingFailures prometheus.Counter
	writeFailures     prometheus.Counter
	shocksWhileActive prometheus.Counter
	active            prometheus.Gauge
	roiRatio          prometheus.Gauge
	wholeRatio        prometheus.Gauge
	notifications     *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_analyzed_total",
			Help:      "Frames decoded and scored.",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames grabbed without decoding while idle.",
		}),
		severities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_by_severity_total",
			Help:      "Analyzed frames by classified severity.",
		}, []string{"severity"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Activations started by category.",
		}, []string{"category"}),
		activationFrames: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activation_frames",
			Help:      "Length of ended activations in frames.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}, []string{"category", "reason"}),
		recordingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_failures_total",
			Help:      "Activations whose recording could not be opened.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_write_failures_total",
			Help:      "Frames that could not be appended to the open recording.",
		}),
		shocksWhileActive: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shocks_while_active_total",
			Help:      "Shock frames observed during a running activation.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 while an activation is running.",
		}),
		roiRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "roi_changed_ratio",
			Help:      "Changed pixel ratio of the region of interest on the last analyzed frame.",
		}),
		wholeRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "whole_changed_ratio",
			Help:      "Changed pixel ratio of the whole frame on the last analyzed frame.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Activation reports handed to publishers by sink and result.",
		}, []string{"sink", "result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesAnalyzed,
		m.framesSkipped,
		m.severities,
		m.activations,
		m.activationFrames,
		m.recordingFailures,
		m.writeFailures,
		m.shocksWhileActive,
		m.active,
		m.roiRatio,
		m.wholeRatio,
		m.notifications,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	for _, sev := range []motion.Severity{motion.SeverityNone, motion.SeverityMotion, motion.SeverityHugeMotion, motion.SeverityShock} {
		m.severities.WithLabelValues(sev.String())
	}

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) FrameAnalyzed(step motion.Step) {
	if m == nil {
		return
	}

	m.framesAnalyzed.Inc()
	m.severities.WithLabelValues(step.Severity.String()).Inc()
	m.roiRatio.Set(step.Reading.ROIRatio)
	if step.Reading.HasWhole {
		m.wholeRatio.Set(step.Reading.WholeRatio)
	}
	if step.RecordingFailed {
		m.recordingFailures.Inc()
	}
	if step.WriteFailed {
		m.writeFailures.Inc()
	}
	if step.ShockWhileActive {
		m.shocksWhileActive.Inc()
	}
}

func (m *Metrics) FramesSkipped(n int) {
	if m == nil {
		return
	}
	m.framesSkipped.Add(float64(n))
}

func (m *Metrics) ActivationStarted(a motion.Activation) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(string(a.Category)).Inc()
	m.active.Set(1)
}

func (m *Metrics) ActivationEnded(a motion.Activation) {
	if m == nil {
		return
	}
	m.activationFrames.WithLabelValues(string(a.Category), string(a.EndReason)).Observe(float64(a.FramesCount()))
	m.active.Set(0)
}

// Notification counts a report handed to sink; result is "published",
// "failed" or "dropped".
func (m *Metrics) Notification(sink string, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(sink, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
