package hashset

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a set's size, footprint and probing health as
// Prometheus metrics. Register it with a prometheus.Registerer; metrics are
// read from the set at scrape time, so the usual single-threaded access
// rules apply to scrapes as well.
type Collector[K, E any] struct {
	set *Set[K, E]

	elements       *prometheus.Desc
	buckets        *prometheus.Desc
	memBytes       *prometheus.Desc
	rehashing      *prometheus.Desc
	probingBuckets *prometheus.Desc
}

// NewCollector creates a collector for s. constLabels distinguish multiple
// sets registered in the same registry.
func NewCollector[K, E any](s *Set[K, E], constLabels prometheus.Labels) *Collector[K, E] {
	return &Collector[K, E]{
		set: s,
		elements: prometheus.NewDesc("hashset_elements",
			"Number of elements stored in the set.", nil, constLabels),
		buckets: prometheus.NewDesc("hashset_buckets",
			"Total bucket count across both tables.", nil, constLabels),
		memBytes: prometheus.NewDesc("hashset_mem_bytes",
			"Memory consumed by the set and its tables.", nil, constLabels),
		rehashing: prometheus.NewDesc("hashset_rehashing",
			"Whether an incremental rehash is in progress.", nil, constLabels),
		probingBuckets: prometheus.NewDesc("hashset_probing_buckets",
			"Buckets carrying the chained probing flag.", []string{"table"}, constLabels),
	}
}

func (c *Collector[K, E]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.elements
	ch <- c.buckets
	ch <- c.memBytes
	ch <- c.rehashing
	ch <- c.probingBuckets
}

func (c *Collector[K, E]) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.elements, prometheus.GaugeValue, float64(c.set.Len()))
	ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(c.set.Buckets()))
	ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(c.set.MemUsage()))
	rehashing := 0.0
	if c.set.IsRehashing() {
		rehashing = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.rehashing, prometheus.GaugeValue, rehashing)
	ch <- prometheus.MustNewConstMetric(c.probingBuckets, prometheus.GaugeValue, float64(c.set.ProbeCounter(0)), "0")
	ch <- prometheus.MustNewConstMetric(c.probingBuckets, prometheus.GaugeValue, float64(c.set.ProbeCounter(1)), "1")
}
