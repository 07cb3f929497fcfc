package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mnehpets/rpcserve/cmd"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

type DivParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// registerMath mounts math.add, math.sub, math.div and math.check.
func registerMath(root *jsonrpc.Registry) error {
	math := jsonrpc.NewRegistry("math")

	err := errors.Join(
		math.Register("add", jsonrpc.Func2(func(_ *jsonrpc.Call, a, b int) (int, error) {
			return a + b, nil
		}, "a", "b")),
		math.Register("sub", jsonrpc.Func2(func(_ *jsonrpc.Call, a, b int) (int, error) {
			return a - b, nil
		}, "a", "b")),
		math.Register("div", jsonrpc.Struct(func(c *jsonrpc.Call, p DivParams) (float64, error) {
			if err := c.Assert(p.B != 0, "division by zero"); err != nil {
				return 0, err
			}
			return p.A / p.B, nil
		})),
		math.Register("check", jsonrpc.Func3(func(c *jsonrpc.Call, a, b, sum int) (bool, error) {
			c.Logger().Info("checking sum", "a", a, "b", b)
			if err := c.AssertEqual(a+b, sum, "wrong sum"); err != nil {
				return false, err
			}
			return true, nil
		}, "a", "b", "sum")),
	)
	if err != nil {
		return err
	}
	return root.Mount(math)
}

// Run with: go run ./example/jsonrpc serve --port 8080
//
//	curl -d '{"jsonrpc":"2.0","id":1,"method":"math.add","params":[2,3]}' localhost:8080/rpc
func main() {
	if err := cmd.NewRootCmd(registerMath).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
