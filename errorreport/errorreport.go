// Package errorreport sends InternalError causes to Sentry.
package errorreport

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/mnehpets/rpcserve/config"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

const flushTimeout = 2 * time.Second

// Init configures the global Sentry client. It reports false without
// touching Sentry when no DSN is configured.
func Init(cfg *config.SentryConfig) (bool, error) {
	if cfg == nil || cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		SampleRate:  cfg.SampleRate,
		Environment: cfg.Environment,
		Release:     config.Version,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Flush waits for buffered events to be delivered.
func Flush() {
	sentry.Flush(flushTimeout)
}

// Observer is a jsonrpc.Observer that captures the cause of every
// InternalError response.
type Observer struct {
	hub *sentry.Hub
}

// NewObserver reports to hub, or to the current hub when hub is nil.
func NewObserver(hub *sentry.Hub) *Observer {
	return &Observer{hub: hub}
}

func (o *Observer) ObserveResponse(resp *jsonrpc.Response) {
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInternalError {
		return
	}
	cause := resp.Error.Cause
	if cause == nil {
		cause = errors.New(resp.Error.Message)
	}

	hub := o.hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		if resp.Request != nil {
			scope.SetTag("rpc.method", resp.Request.Method)
			scope.SetTag("rpc.id", resp.Request.ID.String())
		}
		hub.CaptureException(cause)
	})
}

func (o *Observer) ObserveBatch(int) {}
