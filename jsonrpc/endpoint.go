package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mnehpets/rpcserve/endpoint"
)

// Outcome is the HTTP-visible result of one JSON-RPC exchange.
//
// Payload is a *Response, a []*Response, or nil for an empty body.
type Outcome struct {
	Status  int
	Payload any
}

// String summarizes the outcome for logs, e.g. "200 batch(3)".
func (o Outcome) String() string {
	switch p := o.Payload.(type) {
	case nil:
		return fmt.Sprintf("%d <empty>", o.Status)
	case []*Response:
		return fmt.Sprintf("%d batch(%d)", o.Status, len(p))
	default:
		return fmt.Sprintf("%d single", o.Status)
	}
}

// Renderer returns the endpoint.Renderer that writes the outcome.
func (o Outcome) Renderer() endpoint.Renderer {
	if o.Payload == nil {
		return &endpoint.NoContentRenderer{Status: o.Status}
	}
	return &endpoint.JSONRenderer{Status: o.Status, Value: o.Payload}
}

// ReadBody decodes exactly one JSON value from r.
func ReadBody(r io.Reader) (json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return raw, nil
}

// Dispatch maps an HTTP method and raw body to an Outcome. Non-POST
// requests get 405 with an InvalidRequest "Method Not Allowed" error;
// everything else is handled by DispatchMessage.
func (d *Dispatcher) Dispatch(ctx context.Context, httpMethod string, body []byte) Outcome {
	if httpMethod != http.MethodPost {
		return Outcome{
			Status:  http.StatusMethodNotAllowed,
			Payload: newErrorResponse(nil, NewError(CodeInvalidRequest, "Method Not Allowed")),
		}
	}
	return d.DispatchMessage(ctx, body)
}

// DispatchMessage handles one raw payload, a single call or a batch,
// independent of the transport carrying it.
//
//   - undecodable payload: 400 with a ParseError.
//   - empty batch: 400 with an InvalidRequest error.
//   - batch: 200 with the visible responses, or no payload if none.
//   - single call: 200 with the response if visible, else no payload.
func (d *Dispatcher) DispatchMessage(ctx context.Context, body []byte) Outcome {
	payload, err := ReadBody(bytes.NewReader(body))
	if err != nil {
		d.baseLogger(ctx).Debug("parse error", "error", err)
		return Outcome{
			Status:  http.StatusBadRequest,
			Payload: newErrorResponse(nil, ErrParse(err)),
		}
	}

	if payload[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return Outcome{
				Status:  http.StatusBadRequest,
				Payload: newErrorResponse(nil, ErrParse(err)),
			}
		}
		if len(items) == 0 {
			return Outcome{
				Status:  http.StatusBadRequest,
				Payload: newErrorResponse(nil, ErrInvalidRequest(errors.New("empty batch"))),
			}
		}

		responses := d.HandleBatch(ctx, items)
		visible := make([]*Response, 0, len(responses))
		for _, resp := range responses {
			if resp.Visible() {
				visible = append(visible, resp)
			}
		}
		if len(visible) == 0 {
			return Outcome{Status: http.StatusOK}
		}
		return Outcome{Status: http.StatusOK, Payload: visible}
	}

	resp := d.HandleRequest(ctx, payload)
	if !resp.Visible() {
		return Outcome{Status: http.StatusOK}
	}
	return Outcome{Status: http.StatusOK, Payload: resp}
}

// rpcParams captures the raw request body. Parsing is deferred to Dispatch
// because JSON-RPC reports body syntax errors as ParseError responses rather
// than HTTP errors.
type rpcParams struct {
	Body []byte `body:"" maxLength:""`
}

// Endpoint is the endpoint function serving JSON-RPC over HTTP.
// Pass it to endpoint.Handler, or use Handler.
func (d *Dispatcher) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	out := d.Dispatch(r.Context(), r.Method, params.Body)
	if out.Status != http.StatusOK {
		d.baseLogger(r.Context()).Info("rejected JSON-RPC exchange", "outcome", out.String(), "http_method", r.Method)
	}
	return out.Renderer(), nil
}

// Handler returns an http.Handler running processors before Endpoint.
func (d *Dispatcher) Handler(processors ...endpoint.Processor) http.Handler {
	return endpoint.Handler(d.Endpoint, processors...)
}
