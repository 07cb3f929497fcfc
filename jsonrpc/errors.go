package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Reserved JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// CodeAssertion is the application-level code raised by Assert and AssertEqual.
// It sits outside the reserved range and mirrors HTTP 400 semantics.
const CodeAssertion = 400

const (
	msgParseError     = "Parse error"
	msgInvalidRequest = "Invalid Request"
	msgMethodNotFound = "Method not found"
	msgInvalidParams  = "Invalid params"
	msgInternalError  = "Internal error"
)

// Error is a JSON-RPC error object.
//
// Data is the structured context sent to the client; it is omitted from the
// wire when empty. Cause is kept for logging only and is never serialized.
type Error struct {
	Code    int
	Message string
	Data    map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("jsonrpc: %d %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("jsonrpc: %d %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// MarshalJSON emits {code, message} or {code, message, data}.
func (e *Error) MarshalJSON() ([]byte, error) {
	type wire struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data,omitempty"`
	}
	return json.Marshal(wire{Code: e.Code, Message: e.Message, Data: e.Data})
}

// UnmarshalJSON reads the wire form back. Cause is not recoverable.
func (e *Error) UnmarshalJSON(b []byte) error {
	var w struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Error{Code: w.Code, Message: w.Message, Data: w.Data}
	return nil
}

// NewError creates an Error with no structured context.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithData creates an Error carrying structured context.
func NewErrorWithData(code int, message string, data map[string]any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

func ErrParse(cause error) *Error {
	return &Error{Code: CodeParseError, Message: msgParseError, Cause: cause}
}

func ErrInvalidRequest(cause error) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msgInvalidRequest, Cause: cause}
}

func ErrMethodNotFound() *Error {
	return &Error{Code: CodeMethodNotFound, Message: msgMethodNotFound}
}

// ErrInvalidParams reports a parameter resolution or decoding failure. The
// failure text is exposed to the client as data.reason.
func ErrInvalidParams(cause error) *Error {
	e := &Error{Code: CodeInvalidParams, Message: msgInvalidParams, Cause: cause}
	if cause != nil {
		e.Data = map[string]any{"reason": cause.Error()}
	}
	return e
}

// ErrInternal wraps a non-protocol failure. The cause stays server side.
func ErrInternal(cause error) *Error {
	return &Error{Code: CodeInternalError, Message: msgInternalError, Cause: cause}
}

// AsError converts any error into an *Error. Protocol errors anywhere in the
// chain are returned unchanged; everything else becomes an InternalError.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr
	}
	return ErrInternal(err)
}

// Assert returns a CodeAssertion error with the given message when cond is false.
func Assert(cond bool, message string) error {
	if cond {
		return nil
	}
	return NewError(CodeAssertion, message)
}

// AssertEqual returns a CodeAssertion error with {actual, expected} as data
// when the two values are not deeply equal.
func AssertEqual(actual, expected any, message string) error {
	if reflect.DeepEqual(actual, expected) {
		return nil
	}
	return NewErrorWithData(CodeAssertion, message, map[string]any{
		"actual":   actual,
		"expected": expected,
	})
}
