/*
Package observability provides lifecycle hooks and collectors for monitoring
interpreters and the actor system.

Metrics records Prometheus counters and histograms from interpreter events,
LogHooks writes them as structured log lines, and Compose joins several hook
sets into one. SystemCollector exposes actor-system counters on scrape.

	reg := prometheus.NewRegistry()
	m, _ := observability.NewMetrics(reg)
	reg.MustRegister(observability.NewSystemCollector(sys))
	hooks := observability.Compose(m.Hooks(), observability.LogHooks(logger))
*/
package observability
