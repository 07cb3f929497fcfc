// Package jsonrpc implements a JSON-RPC 2.0 server core and its HTTP binding.
//
// This package implements the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification)
// and JSON-RPC over HTTP (https://www.simple-is-better.org/json-rpc/transport_http.html).
//
// # Basic Usage
//
// Create a registry, register methods, and serve the dispatcher via HTTP:
//
//	reg := jsonrpc.NewRegistry("")
//	reg.Register("add", jsonrpc.Func2(func(c *jsonrpc.Call, a, b int) (int, error) {
//	    return a + b, nil
//	}, "a", "b"))
//
//	d := jsonrpc.NewDispatcher(reg)
//	http.Handle("/rpc", d.Handler())
//	http.ListenAndServe(":8080", nil)
//
// # Parameters
//
// Every method declares its formal parameter names in order. Positional
// (array) params are matched by index and named (object) params by name.
// Missing params leave the handler's argument at its zero value; unknown
// names and surplus positional values are rejected with InvalidParams.
//
// The typed adapters Func0 through Func3 take the names explicitly. Struct
// derives them from json tags:
//
//	type AddParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	reg.Register("add", jsonrpc.Struct(func(c *jsonrpc.Call, p AddParams) (int, error) {
//	    return p.A + p.B, nil
//	}))
//
// # Namespaces
//
// A registry created with a namespace prefixes every name registered on it.
// Mount merges one registry into another:
//
//	math := jsonrpc.NewRegistry("math")
//	math.Register("add", add)   // -> "math.add"
//	root.Mount(math)
//
// # Error Handling
//
// Return an *Error to send a specific code to the client:
//
//	return 0, jsonrpc.NewError(-32000, "division by zero")
//
// Any other error (or a panic) is reported as InternalError with a generic
// message; the original error is logged but never sent. Call.Assert and
// Call.AssertEqual raise CodeAssertion.
//
// # HTTP Status
//
// Call-level failures are always delivered with status 200. Only a non-POST
// method (405), an unparsable body (400) and an empty batch (400) change the
// status. Notifications produce no response; a request or batch made up only
// of notifications yields an empty body.
//
// # Processor Integration
//
// Processors can be passed to Handler for cross-cutting concerns:
//
//	http.Handle("/rpc", d.Handler(requestLogger, accessLog))
//
// Processor errors return HTTP error responses (not JSON-RPC errors).
package jsonrpc
