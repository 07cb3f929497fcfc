package jsonrpc

import (
	"context"
	"log/slog"
)

// Call is the context a handler runs in.
type Call struct {
	ctx     context.Context
	logger  *slog.Logger
	request *Request
}

// Context returns the transport context of the HTTP exchange.
func (c *Call) Context() context.Context { return c.ctx }

// Logger returns a logger scoped to this call. It is never nil; when no
// logger is configured it discards everything.
func (c *Call) Logger() *slog.Logger { return c.logger }

// Request returns the validated request being handled.
func (c *Call) Request() *Request { return c.request }

// Assert is shorthand for the package level Assert.
func (c *Call) Assert(cond bool, message string) error {
	return Assert(cond, message)
}

// AssertEqual is shorthand for the package level AssertEqual.
func (c *Call) AssertEqual(actual, expected any, message string) error {
	return AssertEqual(actual, expected, message)
}
