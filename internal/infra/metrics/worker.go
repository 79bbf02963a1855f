package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerTasks) }

var workerTasks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_tasks_total",
		Help: "Background tasks by result (ok, error, panic, dropped).",
	},
	[]string{"result"},
)

func IncWorkerTask(result string) {
	workerTasks.WithLabelValues(norm(result)).Inc()
}
