package pebblekv

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the engine metrics of an Env.
type Collector struct {
	env *Env

	compactionCount *prometheus.Desc
	compactionDebt  *prometheus.Desc
	memtableSize    *prometheus.Desc
	memtableCount   *prometheus.Desc
	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector for env. Metrics carry an "env" label
// with the given name so several environments can share a registry.
func NewCollector(env *Env, name string) *Collector {
	labels := prometheus.Labels{"env": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("sercha_pebble_"+metric, help, nil, labels)
	}
	return &Collector{
		env:             env,
		compactionCount: desc("compaction_count_total", "Total number of compactions performed"),
		compactionDebt:  desc("compaction_estimated_debt_bytes", "Estimated bytes left to compact"),
		memtableSize:    desc("memtable_size_bytes", "Current size of the memtable in bytes"),
		memtableCount:   desc("memtable_count", "Current count of memtables"),
		walFiles:        desc("wal_files", "Number of live WAL files"),
		walSize:         desc("wal_size_bytes", "Size of live WAL files in bytes"),
		walBytesWritten: desc("wal_bytes_written_total", "Bytes written to the WAL"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.compactionCount
	ch <- c.compactionDebt
	ch <- c.memtableSize
	ch <- c.memtableCount
	ch <- c.walFiles
	ch <- c.walSize
	ch <- c.walBytesWritten
}

// Collect implements prometheus.Collector. A closed Env reports nothing.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if err := c.env.acquire(); err != nil {
		return
	}
	defer c.env.Close()

	m := c.env.db.Metrics()

	ch <- prometheus.MustNewConstMetric(c.compactionCount, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(c.compactionDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(c.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(c.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))
	ch <- prometheus.MustNewConstMetric(c.walFiles, prometheus.GaugeValue, float64(m.WAL.Files))
	ch <- prometheus.MustNewConstMetric(c.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(c.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))
}
