// Package metrics exports workflow node metrics to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smallnest/ragrouter/graph"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the node metrics. Register it once per registry.
type Collector struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ragrouter",
				Name:      "node_executions_total",
				Help:      "Total number of workflow node executions",
			},
			[]string{"node", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ragrouter",
				Name:      "node_duration_seconds",
				Help:      "Duration of workflow node executions",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"node"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ragrouter",
				Name:      "node_in_flight",
				Help:      "Number of workflow nodes currently executing",
			},
			[]string{"node"},
		),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{c.executions, c.duration, c.inFlight} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collector) started(node string) {
	c.inFlight.WithLabelValues(node).Inc()
}

func (c *Collector) finished(node, status string, elapsed time.Duration) {
	c.inFlight.WithLabelValues(node).Dec()
	c.executions.WithLabelValues(node, status).Inc()
	c.duration.WithLabelValues(node).Observe(elapsed.Seconds())
}

// NodeListener records node events of a graph over state S into a
// Collector.
type NodeListener[S any] struct {
	collector *Collector
}

// NewNodeListener returns a listener feeding c.
func NewNodeListener[S any](c *Collector) *NodeListener[S] {
	return &NodeListener[S]{collector: c}
}

// OnNodeEvent implements graph.NodeListener.
func (l *NodeListener[S]) OnNodeEvent(ctx context.Context, event graph.NodeEvent, nodeName string, _ S, _ error) {
	var elapsed time.Duration
	if start, ok := graph.NodeStartTime(ctx); ok {
		elapsed = time.Since(start)
	}

	switch event {
	case graph.NodeEventStart:
		l.collector.started(nodeName)
	case graph.NodeEventComplete:
		l.collector.finished(nodeName, StatusOK, elapsed)
	case graph.NodeEventError:
		l.collector.finished(nodeName, StatusError, elapsed)
	}
}

var _ graph.NodeListener[any] = (*NodeListener[any])(nil)
