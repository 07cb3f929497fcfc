package middleware

import (
	"net/http"
	"time"

	"github.com/mnehpets/rpcserve/metrics"
)

// Instrument records HTTP request metrics under the given handler label.
type Instrument struct {
	Metrics *metrics.HTTPMetrics
	Handler string
}

// Process implements endpoint.Processor.
func (p *Instrument) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.Metrics == nil {
		return next(w, r)
	}
	p.Metrics.RequestsInFlight.Inc()
	defer p.Metrics.RequestsInFlight.Dec()

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	err := next(rec, r)

	p.Metrics.RequestDuration.WithLabelValues(r.Method, p.Handler).Observe(time.Since(start).Seconds())
	p.Metrics.RequestsTotal.WithLabelValues(r.Method, p.Handler, metrics.StatusClass(rec.statusOf(err))).Inc()
	return err
}
