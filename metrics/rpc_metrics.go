package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

var (
	RPCLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	BatchSizeBuckets  = []float64{1, 2, 5, 10, 20, 50, 100}
)

// Label values used when a response has no registered method to attribute.
const (
	MethodInvalid = "<invalid>"
	MethodUnknown = "<unknown>"
	OutcomeOK     = "ok"
)

// RPCMetrics groups JSON-RPC call metrics. It implements jsonrpc.Observer.
type RPCMetrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	BatchSize    prometheus.Histogram
}

var _ jsonrpc.Observer = (*RPCMetrics)(nil)

// NewRPCMetrics creates and returns RPC metrics
func NewRPCMetrics() *RPCMetrics {
	return &RPCMetrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcserve_rpc_calls_total",
				Help: "Total number of JSON-RPC calls by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome: "ok" or the error code
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rpcserve_rpc_call_duration_seconds",
				Help:    "JSON-RPC handler execution time in seconds",
				Buckets: RPCLatencyBuckets,
			},
			[]string{"method"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rpcserve_rpc_batch_size",
				Help:    "Number of calls per JSON-RPC batch",
				Buckets: BatchSizeBuckets,
			},
		),
	}
}

// Register registers all RPC metrics with the given registry
func (m *RPCMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.CallsTotal,
		m.CallDuration,
		m.BatchSize,
	)
}

// ObserveResponse records one call outcome. Only calls that reached a
// handler contribute to the duration histogram.
func (m *RPCMetrics) ObserveResponse(resp *jsonrpc.Response) {
	method := methodLabel(resp)
	outcome := OutcomeOK
	if resp.Error != nil {
		outcome = strconv.Itoa(resp.Error.Code)
	}
	m.CallsTotal.WithLabelValues(method, outcome).Inc()

	if resp.Invoked() {
		m.CallDuration.WithLabelValues(method).Observe(resp.Elapsed.Seconds())
	}
}

func (m *RPCMetrics) ObserveBatch(size int) {
	m.BatchSize.Observe(float64(size))
}

// methodLabel keeps label cardinality bounded: client-supplied names are only
// used once they are known to be registered.
func methodLabel(resp *jsonrpc.Response) string {
	switch {
	case resp.Request == nil:
		return MethodInvalid
	case !resp.Invoked() && resp.Error != nil && resp.Error.Code == jsonrpc.CodeMethodNotFound:
		return MethodUnknown
	default:
		return resp.Request.Method
	}
}
