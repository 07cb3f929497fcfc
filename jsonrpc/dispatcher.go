package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mnehpets/rpcserve/log"
)

// Observer receives every response the dispatcher produces. Implementations
// must be safe for concurrent use: batch items are dispatched in parallel.
type Observer interface {
	ObserveResponse(resp *Response)
	ObserveBatch(size int)
}

type nopObserver struct{}

func (nopObserver) ObserveResponse(*Response) {}
func (nopObserver) ObserveBatch(int)          {}

type multiObserver []Observer

func (m multiObserver) ObserveResponse(resp *Response) {
	for _, o := range m {
		o.ObserveResponse(resp)
	}
}

func (m multiObserver) ObserveBatch(size int) {
	for _, o := range m {
		o.ObserveBatch(size)
	}
}

// Observers combines several observers into one, skipping nil entries.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nopObserver{}
	case 1:
		return m[0]
	}
	return m
}

// DefaultBatchConcurrency bounds the number of batch items executing at once.
const DefaultBatchConcurrency = 8

// Dispatcher validates requests, routes them through a Registry, and builds
// a Response for every one of them.
type Dispatcher struct {
	registry         *Registry
	logger           *slog.Logger
	observer         Observer
	batchConcurrency int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the base logger. A request-scoped logger found in the
// context (see log.WithContext) takes precedence.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver installs an Observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithBatchConcurrency bounds how many batch items run at once. n <= 0
// removes the bound.
func WithBatchConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.batchConcurrency = n
	}
}

// NewDispatcher creates a Dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:         reg,
		logger:           log.Discard(),
		observer:         nopObserver{},
		batchConcurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher routes to.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// HandleRequest handles one decoded payload item. It always returns a
// Response; failures at any stage are reported in Response.Error.
func (d *Dispatcher) HandleRequest(ctx context.Context, raw json.RawMessage) *Response {
	resp := d.handle(ctx, raw)
	d.observer.ObserveResponse(resp)
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, raw json.RawMessage) *Response {
	req, err := ParseRequest(raw)
	if err != nil {
		d.baseLogger(ctx).Debug("invalid request", slog.Any("error", err))
		return newErrorResponse(nil, ErrInvalidRequest(err))
	}

	logger := d.baseLogger(ctx).With(
		slog.String("rpc.method", req.Method),
		slog.String("rpc.id", req.ID.String()),
	)

	method, ok := d.registry.Lookup(req.Method)
	if !ok {
		logger.Debug("method not found")
		return newErrorResponse(req, ErrMethodNotFound())
	}

	args, err := ResolveParams(req.Params, method.ParamNames)
	if err != nil {
		logger.Debug("invalid params", slog.Any("error", err))
		return newErrorResponse(req, ErrInvalidParams(err))
	}

	call := &Call{ctx: ctx, logger: logger, request: req}

	start := time.Now()
	result, err := invoke(method.Handler, call, args)
	elapsed := time.Since(start)

	if err != nil {
		rpcErr := AsError(err)
		if _, encErr := json.Marshal(rpcErr); encErr != nil {
			rpcErr = ErrInternal(fmt.Errorf("encode error data: %w (handler error: %w)", encErr, err))
		}
		if rpcErr.Code == CodeInternalError {
			logger.Error("handler failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
		} else {
			logger.Debug("handler returned error", slog.Int("code", rpcErr.Code), slog.String("message", rpcErr.Message))
		}
		resp := newErrorResponse(req, rpcErr)
		resp.Elapsed = elapsed
		resp.invoked = true
		return resp
	}

	// A result that cannot be encoded fails this call only.
	encoded, err := json.Marshal(result)
	if err != nil {
		logger.Error("unencodable result", slog.Any("error", err), slog.Duration("elapsed", elapsed))
		resp := newErrorResponse(req, ErrInternal(fmt.Errorf("encode result: %w", err)))
		resp.Elapsed = elapsed
		resp.invoked = true
		return resp
	}

	logger.Debug("handled", slog.Duration("elapsed", elapsed))
	return newResultResponse(req, result, encoded, elapsed)
}

// invoke runs h, converting a panic into an InternalError.
func invoke(h HandlerFunc, c *Call, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = ErrInternal(fmt.Errorf("panic: %v", r))
		}
	}()
	return h(c, args)
}

// HandleBatch handles every item of a batch independently and concurrently.
// The returned slice has one response per item, in input order.
func (d *Dispatcher) HandleBatch(ctx context.Context, items []json.RawMessage) []*Response {
	responses := make([]*Response, len(items))

	var g errgroup.Group
	if d.batchConcurrency > 0 {
		g.SetLimit(d.batchConcurrency)
	}
	for i, item := range items {
		g.Go(func() error {
			responses[i] = d.HandleRequest(ctx, item)
			return nil
		})
	}
	// Items never report errors to the group, so one failure cannot cancel
	// its siblings.
	_ = g.Wait()

	d.observer.ObserveBatch(len(items))
	return responses
}

func (d *Dispatcher) baseLogger(ctx context.Context) *slog.Logger {
	if l, ok := log.FromContext(ctx); ok {
		return l
	}
	return d.logger
}
