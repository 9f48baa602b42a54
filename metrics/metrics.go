// Package metrics holds the Prometheus collectors of the capture loop.
//
// Every method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voxcap"

// Metrics contains the capture session collectors.
type Metrics struct {
	// Capture loop
	ChunksRead     prometheus.Counter
	VoicedChunks   prometheus.Counter
	ReadErrors     prometheus.Counter
	ProcessErrors  prometheus.Counter
	ProcessSeconds prometheus.Histogram
	Volume         prometheus.Gauge

	// Output sink
	BytesWritten prometheus.Counter
	WriteErrors  prometheus.Counter

	// Visualization
	Published      prometheus.Counter
	PublishDropped prometheus.Counter

	// Session lifecycle
	SessionsStarted  prometheus.Counter
	SessionsDeclined prometheus.Counter
	StopTimeouts     prometheus.Counter
	Recording        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_read_total",
			Help:      "Total number of sample chunks read from the device",
		}),
		VoicedChunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_voiced_total",
			Help:      "Total number of chunks above the voiced threshold",
		}),
		ReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Total number of failed device reads",
		}),
		ProcessErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_errors_total",
			Help:      "Total number of chunks the transform chain rejected",
		}),
		ProcessSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent running one chunk through the transform chain",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_decibels",
			Help:      "Volume of the last chunk read",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Total number of PCM bytes written to the output sink",
		}),
		WriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_write_errors_total",
			Help:      "Total number of failed output sink writes",
		}),
		Published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Total number of magnitude vectors handed to the visualization sink",
		}),
		PublishDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_dropped_total",
			Help:      "Total number of magnitude vectors replaced before the sink took them",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of capture sessions started",
		}),
		SessionsDeclined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_declined_total",
			Help:      "Total number of capture sessions declined",
		}),
		StopTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stop_timeouts_total",
			Help:      "Total number of stops where the capture loop outlived the timeout",
		}),
		Recording: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recording",
			Help:      "1 while a capture session is recording",
		}),
	}
}

// ObserveChunk records one processed chunk.
func (m *Metrics) ObserveChunk(voiced bool, volume float64, took time.Duration) {
	if m == nil {
		return
	}

	m.ChunksRead.Inc()
	if voiced {
		m.VoicedChunks.Inc()
	}

	m.Volume.Set(volume)
	m.ProcessSeconds.Observe(took.Seconds())
}

// ReadError records a failed device read.
func (m *Metrics) ReadError() {
	if m != nil {
		m.ReadErrors.Inc()
	}
}

// ProcessError records a chunk the chain rejected.
func (m *Metrics) ProcessError() {
	if m != nil {
		m.ProcessErrors.Inc()
	}
}

// Wrote records n bytes written to the sink, or a write failure.
func (m *Metrics) Wrote(n int, err error) {
	if m == nil {
		return
	}

	m.BytesWritten.Add(float64(n))
	if err != nil {
		m.WriteErrors.Inc()
	}
}

// Publish records a vector handed off, dropped reports whether it replaced an
// unconsumed one.
func (m *Metrics) Publish(dropped bool) {
	if m == nil {
		return
	}

	m.Published.Inc()
	if dropped {
		m.PublishDropped.Inc()
	}
}

// SessionStarted marks a session as recording.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
		m.Recording.Set(1)
	}
}

// SessionDeclined records a start that did not happen.
func (m *Metrics) SessionDeclined() {
	if m != nil {
		m.SessionsDeclined.Inc()
	}
}

// SessionStopped marks a session as idle, timedOut reports whether the
// capture loop outlived the stop timeout.
func (m *Metrics) SessionStopped(timedOut bool) {
	if m == nil {
		return
	}

	m.Recording.Set(0)
	if timedOut {
		m.StopTimeouts.Inc()
	}
}
