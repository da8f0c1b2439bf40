// Package metrics wires pulsed's runtime counters into a prometheus
// registry. Every collector is constructed against an explicit
// *prometheus.Registry rather than the global DefaultRegisterer, so
// tests can assert against an isolated registry instead of the process
// singleton.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// CoreMetrics covers the event loop and render path: underruns, render
// latency, and active entity counts (subscribe events).
type CoreMetrics struct {
	RenderUnderruns *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	ActiveSinkInputs prometheus.Gauge
	ActiveSources prometheus.Gauge
	QueueDepthBytes *prometheus.GaugeVec
}

// NewCoreMetrics registers and returns the core render-path collectors.
func NewCoreMetrics(registry *prometheus.Registry) (*CoreMetrics, error) {
	m := &CoreMetrics{
 RenderUnderruns: prometheus.NewCounterVec(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "core",
 Name: "render_underruns_total",
 Help: "Number of times a sink render step had to pad with silence.",
 }, []string{"sink"}),
 RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
 Namespace: "pulsed",
 Subsystem: "core",
 Name: "render_duration_seconds",
 Help: "Wall-clock time spent in one sink render step.",
 Buckets: prometheus.DefBuckets,
 }, []string{"sink"}),
 ActiveSinkInputs: prometheus.NewGauge(prometheus.GaugeOpts{
 Namespace: "pulsed",
 Subsystem: "core",
 Name: "active_sink_inputs",
 Help: "Number of sink-inputs currently registered.",
 }),
 ActiveSources: prometheus.NewGauge(prometheus.GaugeOpts{
 Namespace: "pulsed",
 Subsystem: "core",
 Name: "active_sources",
 Help: "Number of sources currently registered.",
 }),
 QueueDepthBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
 Namespace: "pulsed",
 Subsystem: "core",
 Name: "queue_depth_bytes",
 Help: "Current queued byte length per stream.",
 }, []string{"stream"}),
	}

	for _, c := range []prometheus.Collector{
 m.RenderUnderruns, m.RenderDuration, m.ActiveSinkInputs, m.ActiveSources, m.QueueDepthBytes,
	} {
 if err := registry.Register(c); err != nil {
 return nil, err
 }
	}
	return m, nil
}

// SubscriptionMetrics covers the pub/sub event bus: how many
// events are dispatched per facility, and to how many subscribed clients.
type SubscriptionMetrics struct {
	EventsPublished *prometheus.CounterVec
	FanoutTargets prometheus.Gauge
}

// NewSubscriptionMetrics registers and returns the subscription-bus
// collectors.
func NewSubscriptionMetrics(registry *prometheus.Registry) (*SubscriptionMetrics, error) {
	m := &SubscriptionMetrics{
 EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "subscribe",
 Name: "events_published_total",
 Help: "Number of subscription events published, by facility and kind.",
 }, []string{"facility", "kind"}),
 FanoutTargets: prometheus.NewGauge(prometheus.GaugeOpts{
 Namespace: "pulsed",
 Subsystem: "subscribe",
 Name: "fanout_targets",
 Help: "Number of clients currently subscribed to at least one facility.",
 }),
	}
	for _, c := range []prometheus.Collector{m.EventsPublished, m.FanoutTargets} {
 if err := registry.Register(c); err != nil {
 return nil, err
 }
	}
	return m, nil
}

// ModuleMetrics covers module/client lifecycle:
// load/unload counts and the sample cache's hit rate.
type ModuleMetrics struct {
	ModuleLoads *prometheus.CounterVec
	ModuleUnloads *prometheus.CounterVec
	SampleCacheHits prometheus.Counter
	SampleCacheMiss prometheus.Counter
	SampleCacheBytes prometheus.Gauge
}

// NewModuleMetrics registers and returns the module/sample-cache
// collectors.
func NewModuleMetrics(registry *prometheus.Registry) (*ModuleMetrics, error) {
	m := &ModuleMetrics{
 ModuleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "module",
 Name: "loads_total",
 Help: "Number of module load attempts, by module name and outcome.",
 }, []string{"name", "outcome"}),
 ModuleUnloads: prometheus.NewCounterVec(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "module",
 Name: "unloads_total",
 Help: "Number of module unloads, by module name and reason.",
 }, []string{"name", "reason"}),
 SampleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "scache",
 Name: "hits_total",
 Help: "Number of sample cache lookups served from cache.",
 }),
 SampleCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
 Namespace: "pulsed",
 Subsystem: "scache",
 Name: "misses_total",
 Help: "Number of sample cache lookups that required a load.",
 }),
 SampleCacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
 Namespace: "pulsed",
 Subsystem: "scache",
 Name: "bytes_resident",
 Help: "Total bytes currently resident in the sample cache.",
 }),
	}
	for _, c := range []prometheus.Collector{
 m.ModuleLoads, m.ModuleUnloads, m.SampleCacheHits, m.SampleCacheMiss, m.SampleCacheBytes,
	} {
 if err := registry.Register(c); err != nil {
 return nil, err
 }
	}
	return m, nil
}
