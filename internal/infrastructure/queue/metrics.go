package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueueDepth tracks the number of jobs waiting in each serializer worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "accounts",
		Name:      "serializer_queue_depth",
		Help:      "Current number of jobs pending in each serializer worker channel.",
	},
	[]string{"worker_id"},
)
