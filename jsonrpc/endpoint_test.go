package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/mnehpets/rpcserve/endpoint"
)

func serve(t *testing.T, d *Dispatcher, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, req)
	return rec
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("got status %d, want %d (body %q)", rec.Code, status, rec.Body.String())
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := serve(t, d, method, `{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`)
			wantStatus(t, rec, http.StatusMethodNotAllowed)
			assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Method Not Allowed"}}`)
		})
	}
}

func TestHTTP_ParseError(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))
	for _, body := range []string{``, `{`, `{"jsonrpc":"2.0"} trailing`, `[1,`} {
		t.Run(body, func(t *testing.T) {
			rec := serve(t, d, http.MethodPost, body)
			wantStatus(t, rec, http.StatusBadRequest)
			assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`)
		})
	}
}

func TestHTTP_EmptyBatch(t *testing.T) {
	rec := serve(t, NewDispatcher(newTestRegistry(t)), http.MethodPost, `[]`)
	wantStatus(t, rec, http.StatusBadRequest)
	assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request"}}`)
}

func TestHTTP_Single(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))

	rec := serve(t, d, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"add","params":[2,3]}`)
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":1,"result":5}`)

	// Call-level errors keep status 200.
	rec = serve(t, d, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"missing"}`)
	wantStatus(t, rec, http.StatusOK)
	assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`)

	rec = serve(t, d, http.MethodPost, `"just a string"`)
	wantStatus(t, rec, http.StatusOK)
	assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request"}}`)

	rec = serve(t, d, http.MethodPost, `{"jsonrpc":"2.0","id":2,"method":"nan"}`)
	wantStatus(t, rec, http.StatusOK)
	assertJSON(t, rec.Body.String(), `{"jsonrpc":"2.0","id":2,"error":{"code":-32603,"message":"Internal error"}}`)
}

func TestHTTP_Notification(t *testing.T) {
	rec := serve(t, NewDispatcher(newTestRegistry(t)), http.MethodPost, `{"jsonrpc":"2.0","method":"notify"}`)
	wantStatus(t, rec, http.StatusOK)
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestHTTP_Batch(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))

	rec := serve(t, d, http.MethodPost, `[{"jsonrpc":"2.0","method":"notify"}, {"jsonrpc":"2.0","id":2,"method":"add","params":[1,1]}]`)
	wantStatus(t, rec, http.StatusOK)
	assertJSON(t, rec.Body.String(), `[{"jsonrpc":"2.0","id":2,"result":2}]`)

	rec = serve(t, d, http.MethodPost, `[
		{"jsonrpc":"2.0","id":1,"method":"add","params":{"a":1,"b":2}},
		{"jsonrpc":"2.0","method":"notify"},
		{"jsonrpc":"2.0","id":"x","method":"missing"},
		1,
		{"jsonrpc":"2.0","id":4,"method":"fail"}
	]`)
	wantStatus(t, rec, http.StatusOK)
	assertJSON(t, rec.Body.String(), `[
		{"jsonrpc":"2.0","id":1,"result":3},
		{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"Method not found"}},
		{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"Invalid Request"}},
		{"jsonrpc":"2.0","id":4,"error":{"code":-32603,"message":"Internal error"}}
	]`)
}

func TestHTTP_BatchWithUnencodableResult(t *testing.T) {
	rec := serve(t, NewDispatcher(newTestRegistry(t)), http.MethodPost, `[
		{"jsonrpc":"2.0","id":1,"method":"add","params":[2,3]},
		{"jsonrpc":"2.0","id":2,"method":"nan"},
		{"jsonrpc":"2.0","id":3,"method":"badData"}
	]`)
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	assertJSON(t, rec.Body.String(), `[
		{"jsonrpc":"2.0","id":1,"result":5},
		{"jsonrpc":"2.0","id":2,"error":{"code":-32603,"message":"Internal error"}},
		{"jsonrpc":"2.0","id":3,"error":{"code":-32603,"message":"Internal error"}}
	]`)
}

func TestHTTP_AllNotificationBatch(t *testing.T) {
	rec := serve(t, NewDispatcher(newTestRegistry(t)), http.MethodPost, `[{"jsonrpc":"2.0","method":"notify"},{"jsonrpc":"2.0","id":null,"method":"add","params":[1,2]}]`)
	wantStatus(t, rec, http.StatusOK)
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestHTTP_ProcessorsRun(t *testing.T) {
	var seen []string
	p := endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		seen = append(seen, r.Method)
		return next(w, r)
	})
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`))
	rec := httptest.NewRecorder()
	NewDispatcher(newTestRegistry(t)).Handler(p).ServeHTTP(rec, req)

	if !reflect.DeepEqual(seen, []string{http.MethodPost}) {
		t.Errorf("processor saw %v", seen)
	}
	wantStatus(t, rec, http.StatusOK)
}

func TestHTTP_RejectedExchangeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(newTestRegistry(t), WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	serve(t, d, http.MethodGet, ``)
	serve(t, d, http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`)

	out := buf.String()
	if strings.Count(out, "rejected JSON-RPC exchange") != 1 {
		t.Fatalf("want exactly one rejection logged, got:\n%s", out)
	}
	if !strings.Contains(out, `"outcome":"405 single"`) || !strings.Contains(out, `"http_method":"GET"`) {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestDispatch_Outcome(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))
	ctx := context.Background()

	out := d.Dispatch(ctx, http.MethodPost, []byte(`{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`))
	resp, ok := out.Payload.(*Response)
	if !ok || out.Status != http.StatusOK {
		t.Fatalf("got %d %T, want 200 *Response", out.Status, out.Payload)
	}
	if resp.Result != 3 {
		t.Errorf("result = %v, want 3", resp.Result)
	}

	tests := []struct {
		body string
		want string
	}{
		{`{"jsonrpc":"2.0","id":1,"method":"add","params":[1,2]}`, "200 single"},
		{`[{"jsonrpc":"2.0","method":"notify"}]`, "200 <empty>"},
		{`[{"jsonrpc":"2.0","id":1,"method":"notify"}]`, "200 batch(1)"},
		{`{`, "400 single"},
	}
	for _, tt := range tests {
		if got := d.Dispatch(ctx, http.MethodPost, []byte(tt.body)).String(); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.body, got, tt.want)
		}
	}
	if out := d.Dispatch(ctx, http.MethodPost, []byte(`[{"jsonrpc":"2.0","method":"notify"}]`)); out.Payload != nil {
		t.Errorf("all-notification payload = %v, want nil", out.Payload)
	}
}

func TestDispatchMessage_IgnoresTransportMethod(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t))
	ctx := context.Background()

	out := d.DispatchMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"add","params":[2,2]}`))
	wantOutcome := func(status int, body string) {
		t.Helper()
		if out.Status != status {
			t.Errorf("status = %d, want %d", out.Status, status)
		}
		assertJSON(t, marshal(t, out.Payload), body)
	}
	wantOutcome(http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":4}`)

	out = d.DispatchMessage(ctx, []byte(`nope`))
	wantOutcome(http.StatusBadRequest, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`)
}

func TestReadBody(t *testing.T) {
	raw, err := ReadBody(strings.NewReader("  {\"a\":1}\n"))
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]int
	if err := json.Unmarshal(raw, &v); err != nil || v["a"] != 1 {
		t.Errorf("got %v, %v", v, err)
	}

	if _, err := ReadBody(strings.NewReader(`{} {}`)); err == nil {
		t.Error("expected error for trailing value")
	}
}
