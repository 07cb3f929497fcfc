package main

import (
	"fmt"
	"os"

	"github.com/mnehpets/rpcserve/cmd"
	"github.com/mnehpets/rpcserve/config"
)

var (
	Version    = "dev"
	CommitHash = "unknown"
)

func main() {
	config.SetBuildInfo(Version, CommitHash)
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
