package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/log"
)

// statusRecorder captures the status code and body size written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// statusOf reports the recorded status. When the chain returned an error
// nothing has been written yet; the handler will map the error to a status.
func (sr *statusRecorder) statusOf(err error) int {
	if sr.status != 0 {
		return sr.status
	}
	if err != nil {
		var ee *endpoint.EndpointError
		if errors.As(err, &ee) && ee.Status >= 100 {
			return ee.Status
		}
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// AccessLog logs one line per HTTP exchange once the response is written.
// It uses the request-scoped logger when RequestLogger ran earlier in the
// chain, falling back to Logger.
type AccessLog struct {
	Logger *slog.Logger
}

// Process implements endpoint.Processor.
func (p *AccessLog) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	err := next(rec, r)

	logger, ok := log.FromContext(r.Context())
	if !ok {
		logger = p.Logger
	}
	if logger == nil {
		return err
	}
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rec.statusOf(err)),
		slog.Int("bytes", rec.bytes),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	logger.Info("http request", attrs...)
	return err
}
