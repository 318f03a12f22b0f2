// Package metrics exposes coordinator activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements plug.Observer with Prometheus collectors.
type Collector struct {
	started   *prometheus.CounterVec
	answered  prometheus.Counter
	removed   prometheus.Counter
	timeouts  prometheus.Counter
	rejected  prometheus.Counter
	active    prometheus.Gauge
	snapshots *prometheus.CounterVec
	wait      prometheus.Histogram
	resolve   prometheus.Histogram
}

var _ plug.Observer = (*Collector)(nil)

// NewCollector creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptplug_prompts_started_total",
			Help: "Prompts started, labelled by whether an active prompt was replaced",
		}, []string{"replaced"}),
		answered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptplug_prompts_answered_total",
			Help: "Prompts answered by a matching response",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptplug_prompts_removed_total",
			Help: "Prompts removed without an answer",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptplug_wait_timeouts_total",
			Help: "Waits that ended because their timeout expired",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptplug_responses_rejected_total",
			Help: "Responses rejected as malformed",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "promptplug_prompt_active",
			Help: "1 while a prompt is active",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptplug_snapshots_total",
			Help: "Snapshots served, labelled by cache result",
		}, []string{"cache"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "promptplug_answer_wait_seconds",
			Help:    "Time from prompt start to accepted answer",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		resolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "promptplug_snapshot_resolve_seconds",
			Help:    "Time spent resolving and serializing a snapshot on cache miss",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.started, c.answered, c.removed, c.timeouts, c.rejected,
		c.active, c.snapshots, c.wait, c.resolve)
	return c
}

func (c *Collector) PromptStarted(replaced bool) {
	label := "false"
	if replaced {
		label = "true"
	}
	c.started.WithLabelValues(label).Inc()
	c.active.Set(1)
}

func (c *Collector) PromptAnswered(wait time.Duration) {
	c.answered.Inc()
	c.wait.Observe(wait.Seconds())
	c.active.Set(0)
}

func (c *Collector) PromptRemoved() {
	c.removed.Inc()
	c.active.Set(0)
}

func (c *Collector) WaitTimedOut() {
	c.timeouts.Inc()
}

func (c *Collector) ResponseRejected() {
	c.rejected.Inc()
}

func (c *Collector) SnapshotServed(hit bool, resolve time.Duration) {
	if hit {
		c.snapshots.WithLabelValues("hit").Inc()
		return
	}
	c.snapshots.WithLabelValues("miss").Inc()
	c.resolve.Observe(resolve.Seconds())
}
