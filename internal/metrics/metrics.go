// Package metrics holds the prometheus collectors of a ballast instance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns a dedicated registry so several instances can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	RSSBytes            prometheus.Gauge
	VMSBytes            prometheus.Gauge
	CPUPercent          prometheus.Gauge
	CPUPercentAvg       prometheus.Gauge
	AllocatedChunks     prometheus.Gauge
	AllocatedBytes      prometheus.Gauge
	StressActiveThreads prometheus.Gauge
	StressOps           prometheus.CounterFunc
	MemoryLimitBytes    prometheus.Gauge
	CPUQuotaCores       prometheus.Gauge
	Events              *prometheus.CounterVec
}

// New creates and registers all collectors. ops reports the compute units
// executed by the cpu stressor.
func New(namespace string, ops func() float64) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident set size of the process at the last collect cycle.",
		}),
		VMSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_vms_bytes",
			Help:      "Virtual memory size of the process at the last collect cycle.",
		}),
		CPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Process cpu usage at the last collect cycle, 100 per busy core.",
		}),
		CPUPercentAvg: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent_avg",
			Help:      "Process cpu usage averaged over the recent collect cycles.",
		}),
		AllocatedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allocated_chunks",
			Help:      "Number of memory chunks currently held.",
		}),
		AllocatedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allocated_bytes",
			Help:      "Bytes currently held by the memory buffer.",
		}),
		StressActiveThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stress_active_threads",
			Help:      "Number of cpu stress workers still running.",
		}),
		StressOps: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stress_ops_total",
			Help:      "Compute units executed by cpu stress workers.",
		}, ops),
		MemoryLimitBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_memory_limit_bytes",
			Help:      "Memory limit of the container, -1 when unlimited.",
		}),
		CPUQuotaCores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_cpu_quota_cores",
			Help:      "CPU quota of the container in cores, -1 when unlimited.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Allocation and stress session events by type and result.",
		}, []string{"type", "result"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RSSBytes,
		m.VMSBytes,
		m.CPUPercent,
		m.CPUPercentAvg,
		m.AllocatedChunks,
		m.AllocatedBytes,
		m.StressActiveThreads,
		m.StressOps,
		m.MemoryLimitBytes,
		m.CPUQuotaCores,
		m.Events,
	)
	return m
}
