// Package system provides the built-in introspection methods served under
// the "system" namespace.
package system

import (
	"github.com/mnehpets/rpcserve/jsonrpc"
)

// Namespace is the prefix of every method registered by Register.
const Namespace = "system"

// MethodInfo describes one registered method.
type MethodInfo struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

// Register mounts system.ping, system.listMethods and system.describe into
// root. The listing methods read root at call time, so they include methods
// registered after Register returns.
func Register(root *jsonrpc.Registry) error {
	reg := jsonrpc.NewRegistry(Namespace)

	if err := reg.Register("ping", jsonrpc.Func0(ping)); err != nil {
		return err
	}
	if err := reg.Register("listMethods", jsonrpc.Func0(func(_ *jsonrpc.Call) ([]string, error) {
		return root.Names(), nil
	})); err != nil {
		return err
	}
	if err := reg.Register("describe", jsonrpc.Func1(func(_ *jsonrpc.Call, name string) (MethodInfo, error) {
		return describe(root, name)
	}, "name")); err != nil {
		return err
	}

	return root.Mount(reg)
}

func ping(_ *jsonrpc.Call) (string, error) {
	return "pong", nil
}

func describe(root *jsonrpc.Registry, name string) (MethodInfo, error) {
	m, ok := root.Lookup(name)
	if !ok {
		return MethodInfo{}, jsonrpc.NewErrorWithData(jsonrpc.CodeMethodNotFound, "Method not found", map[string]any{"name": name})
	}
	params := m.ParamNames
	if params == nil {
		params = []string{}
	}
	return MethodInfo{Name: name, Params: params}, nil
}
