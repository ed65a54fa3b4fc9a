package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, storeOpsTotal) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	// backend: postgres|dynamodb|memory; result: ok|error
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_purchase_store_ops_total",
			Help: "Purchase store operations by backend, operation and result.",
		},
		[]string{"backend", "op", "result"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func IncStoreOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOpsTotal.WithLabelValues(norm(backend), norm(op), result).Inc()
}
