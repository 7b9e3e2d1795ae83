package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	workersSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rekindle",
		Name:      "workers_spawned_total",
		Help:      "Total number of worker processes launched.",
	})

	workerExits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rekindle",
		Name:      "worker_exits_total",
		Help:      "Total number of worker exits by outcome.",
	}, []string{"outcome"})

	channelBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rekindle",
		Name:      "channel_bytes_total",
		Help:      "Bytes moved over supervisor/worker channels by direction.",
	}, []string{"direction"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rekindle",
		Name:      "build_info",
		Help:      "Build metadata for the running rekindle binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(workersSpawned, workerExits, channelBytes, buildInfo)
}

// Registry returns the Prometheus registry containing all rekindle metrics.
func Registry() *prometheus.Registry {
	return registry
}

// WorkerSpawned records one successful worker launch.
func WorkerSpawned() {
	workersSpawned.Inc()
}

// WorkerExited records a worker exit with the given outcome ("ok" or
// "error").
func WorkerExited(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	workerExits.WithLabelValues(outcome).Inc()
}

// AddChannelBytes accounts bytes sent ("out") or received ("in") on a
// supervisor/worker channel.
func AddChannelBytes(direction string, n int) {
	if n <= 0 {
		return
	}
	channelBytes.WithLabelValues(direction).Add(float64(n))
}

// EmitBuildInfo publishes build metadata exactly once.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
