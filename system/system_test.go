package system

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

func newDispatcher(t *testing.T) *jsonrpc.Dispatcher {
	t.Helper()
	root := jsonrpc.NewRegistry("")
	require.NoError(t, root.Register("add", jsonrpc.Func2(func(_ *jsonrpc.Call, a, b int) (int, error) {
		return a + b, nil
	}, "a", "b")))
	require.NoError(t, Register(root))
	return jsonrpc.NewDispatcher(root)
}

func call(t *testing.T, d *jsonrpc.Dispatcher, req string) string {
	t.Helper()
	b, err := json.Marshal(d.HandleRequest(context.Background(), json.RawMessage(req)))
	require.NoError(t, err)
	return string(b)
}

func TestPing(t *testing.T) {
	d := newDispatcher(t)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`,
		call(t, d, `{"jsonrpc":"2.0","id":1,"method":"system.ping"}`))
}

func TestListMethods(t *testing.T) {
	d := newDispatcher(t)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":["add","system.describe","system.listMethods","system.ping"]}`,
		call(t, d, `{"jsonrpc":"2.0","id":1,"method":"system.listMethods"}`))

	// Methods registered later are listed too.
	require.NoError(t, d.Registry().RegisterFunc("later", func(*jsonrpc.Call, jsonrpc.Args) (any, error) { return nil, nil }))
	assert.Contains(t, call(t, d, `{"jsonrpc":"2.0","id":1,"method":"system.listMethods"}`), `"later"`)
}

func TestDescribe(t *testing.T) {
	d := newDispatcher(t)

	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{"name":"add","params":["a","b"]}}`,
		call(t, d, `{"jsonrpc":"2.0","id":1,"method":"system.describe","params":["add"]}`))

	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{"name":"system.ping","params":[]}}`,
		call(t, d, `{"jsonrpc":"2.0","id":2,"method":"system.describe","params":{"name":"system.ping"}}`))

	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Method not found","data":{"name":"nope"}}}`,
		call(t, d, `{"jsonrpc":"2.0","id":3,"method":"system.describe","params":["nope"]}`))
}

func TestRegister_Twice(t *testing.T) {
	root := jsonrpc.NewRegistry("")
	require.NoError(t, Register(root))
	assert.ErrorIs(t, Register(root), jsonrpc.ErrDuplicateMethod)
}
