package observability

import (
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/prometheus/client_golang/prometheus"
)

// SystemCollector reads actor-system counters on every scrape.
type SystemCollector struct {
	sys *actor.System

	actors    *prometheus.Desc
	pending   *prometheus.Desc
	processed *prometheus.Desc
	failed    *prometheus.Desc
	discarded *prometheus.Desc
}

// NewSystemCollector creates a collector for sys.
func NewSystemCollector(sys *actor.System) *SystemCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "system", name), help, nil, nil)
	}
	return &SystemCollector{
		sys:       sys,
		actors:    desc("actors", "Registered actors."),
		pending:   desc("pending_messages", "Messages queued across all mailboxes."),
		processed: desc("processed_total", "Mailbox operations completed."),
		failed:    desc("failed_total", "Mailbox operations that returned an error or panicked."),
		discarded: desc("discarded_total", "Queued operations dropped by close or clear."),
	}
}

// Describe implements prometheus.Collector.
func (c *SystemCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.actors
	ch <- c.pending
	ch <- c.processed
	ch <- c.failed
	ch <- c.discarded
}

// Collect implements prometheus.Collector.
func (c *SystemCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.sys.Stats()
	pending := 0
	for _, name := range c.sys.ListNames() {
		if h, ok := c.sys.Get(name); ok {
			pending += h.Pending()
		}
	}
	ch <- prometheus.MustNewConstMetric(c.actors, prometheus.GaugeValue, float64(st.Actors))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(pending))
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(st.Processed))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(st.Failed))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(st.Discarded))
}
