package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesPainted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_updates_painted_total",
		Help: "Total number of updates painted into the backing, by pixel format",
	}, []string{"name", "format"})
	UpdatesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_updates_failed_total",
		Help: "Total number of updates that could not be painted",
	}, []string{"name"})
	BytesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_bytes_uploaded_total",
		Help: "Total number of pixel bytes uploaded from host memory",
	}, []string{"name"})
	Presentations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_presentations_total",
		Help: "Total number of times the backing was shown on screen",
	}, []string{"name"})
	ScrollsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_scroll_ops_rejected_total",
		Help: "Total number of scroll operations rejected during validation",
	}, []string{"name"})
	Resizes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_resizes_total",
		Help: "Total number of backing size changes",
	}, []string{"name"})
	InteropFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glbacking_interop_fallbacks_total",
		Help: "Total number of device frames downloaded to host memory instead of copied on the device",
	}, []string{"name"})
	PaintSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glbacking_paint_seconds",
		Help:    "Time spent uploading and compositing one update",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"name"})
)

type BackingMetrics struct {
	UpdatesFailed   prometheus.Counter
	BytesUploaded   prometheus.Counter
	Presentations   prometheus.Counter
	ScrollsRejected prometheus.Counter
	Resizes         prometheus.Counter
	PaintSeconds    prometheus.Observer

	name string
}

func NewBackingMetrics(name string) *BackingMetrics {
	b := &BackingMetrics{
		UpdatesFailed:   UpdatesFailed.WithLabelValues(name),
		BytesUploaded:   BytesUploaded.WithLabelValues(name),
		Presentations:   Presentations.WithLabelValues(name),
		ScrollsRejected: ScrollsRejected.WithLabelValues(name),
		Resizes:         Resizes.WithLabelValues(name),
		PaintSeconds:    PaintSeconds.WithLabelValues(name),
		name:            name,
	}
	b.UpdatesFailed.Add(0)
	b.BytesUploaded.Add(0)
	b.Presentations.Add(0)
	b.ScrollsRejected.Add(0)
	b.Resizes.Add(0)
	return b
}

func (b *BackingMetrics) Painted(format string) {
	UpdatesPainted.WithLabelValues(b.name, format).Inc()
}

// Forget drops every series of a closed backing.
func (b *BackingMetrics) Forget() {
	for _, v := range []*prometheus.CounterVec{UpdatesFailed, BytesUploaded, Presentations, ScrollsRejected, Resizes} {
		v.DeleteLabelValues(b.name)
	}
	UpdatesPainted.DeletePartialMatch(prometheus.Labels{"name": b.name})
	PaintSeconds.DeleteLabelValues(b.name)
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
