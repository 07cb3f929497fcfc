package jsonrpc

import (
	"encoding/json"
	"time"
)

// Response is the outcome of one call.
//
// Exactly one of Result and Error is meaningful: when Error is nil the
// response is a success and Result (possibly nil) is the result value.
// Elapsed and Request are diagnostics and are not serialized.
type Response struct {
	ID     ID
	Result any
	Error  *Error

	Elapsed time.Duration
	Request *Request

	invoked bool
	// encoded is Result as JSON, set when the dispatcher produced Result.
	encoded json.RawMessage
}

func newErrorResponse(req *Request, err *Error) *Response {
	resp := &Response{Error: err, Request: req}
	if req != nil {
		resp.ID = req.ID
	}
	return resp
}

func newResultResponse(req *Request, result any, encoded json.RawMessage, elapsed time.Duration) *Response {
	return &Response{ID: req.ID, Result: result, Elapsed: elapsed, Request: req, invoked: true, encoded: encoded}
}

// Invoked reports whether a handler ran to produce the response, as opposed
// to the request failing validation, lookup, or parameter resolution.
func (r *Response) Invoked() bool {
	return r.invoked
}

// Visible reports whether the response must be written to the client: it
// carries a non-null id, or it carries an error.
func (r *Response) Visible() bool {
	return !r.ID.IsNotification() || r.Error != nil
}

// ElapsedMillis returns the handler execution time in milliseconds.
func (r *Response) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// MarshalJSON emits {jsonrpc, id, result} or {jsonrpc, id, error}.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			ID      ID     `json:"id"`
			Error   *Error `json:"error"`
		}{Version, r.ID, r.Error})
	}
	var result any = r.Result
	if r.encoded != nil {
		result = r.encoded
	}
	return json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		ID      ID     `json:"id"`
		Result  any    `json:"result"`
	}{Version, r.ID, result})
}

// UnmarshalJSON reads a wire response. It is used by clients and tests.
func (r *Response) UnmarshalJSON(b []byte) error {
	var w struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Response{ID: w.ID, Error: w.Error}
	if w.Error == nil && len(w.Result) > 0 {
		var v any
		if err := json.Unmarshal(w.Result, &v); err != nil {
			return err
		}
		r.Result = v
	}
	return nil
}
