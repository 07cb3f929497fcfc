package main

import (
	"log"
	"net/http"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

// HelloParams defines the parameters for the hello method.
type HelloParams struct {
	Name string `json:"name"`
}

// Hello is the business logic for the hello method.
func Hello(_ *jsonrpc.Call, params HelloParams) (string, error) {
	if params.Name == "" {
		params.Name = "World"
	}
	return "Hello, " + params.Name + "!", nil
}

func main() {
	reg := jsonrpc.NewRegistry("")
	if err := reg.Register("hello", jsonrpc.Struct(Hello)); err != nil {
		log.Fatal(err)
	}

	// Dispatcher.Handler wraps the dispatcher in an endpoint handler; no
	// processors are needed for a bare server.
	handler := jsonrpc.NewDispatcher(reg).Handler()

	log.Println("Listening on :8080")
	if err := http.ListenAndServe(":8080", handler); err != nil {
		log.Fatal(err)
	}
}
