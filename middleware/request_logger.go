// Package middleware provides endpoint.Processor implementations shared by
// the server's handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/log"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

const maxInboundRequestIDLength = 128

type requestIDKey struct{}

// inboundHeaders is decoded with endpoint.Unmarshal. The length check is
// left to sanitizeRequestID so an oversized id is replaced, not rejected.
type inboundHeaders struct {
	RequestID string `header:"X-Request-Id" maxLength:""`
}

// RequestIDFromContext returns the id assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// RequestLogger assigns every request an id and attaches a child logger
// carrying it to the request context (see log.FromContext).
//
// An inbound X-Request-Id is reused when TrustInbound is set and the value
// is printable and at most 128 bytes; otherwise a random UUID is generated.
// The id is echoed in the response header.
type RequestLogger struct {
	Logger       *slog.Logger
	TrustInbound bool
}

// NewRequestLogger creates a RequestLogger that trusts inbound ids.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	return &RequestLogger{Logger: logger, TrustInbound: true}
}

// Process implements endpoint.Processor.
func (p *RequestLogger) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	id := ""
	if p.TrustInbound {
		var in inboundHeaders
		if err := endpoint.Unmarshal(r, &in); err != nil {
			return err
		}
		id = sanitizeRequestID(in.RequestID)
	}
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	base := p.Logger
	if base == nil {
		base = log.Discard()
	}
	logger := base.With(slog.String("request_id", id))

	ctx := context.WithValue(r.Context(), requestIDKey{}, id)
	ctx = log.WithContext(ctx, logger)
	return next(w, r.WithContext(ctx))
}

func sanitizeRequestID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxInboundRequestIDLength {
		return ""
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return id
}
