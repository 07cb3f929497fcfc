package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnehpets/rpcserve/config"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

// Registrar adds application methods to the root registry before the
// server starts.
type Registrar func(reg *jsonrpc.Registry) error

func NewRootCmd(registrars ...Registrar) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rpcserve",
		Short:         "JSON-RPC 2.0 over HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(registrars))
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rpcserve %s (%s)\n", config.Version, config.CommitHash)
		},
	}
}
