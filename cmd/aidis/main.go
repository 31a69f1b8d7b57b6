// Command aidis runs the development intelligence daemon: a persistent
// context, decision and task store exposed to coding agents over stdio
// JSON-RPC and HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aidis",
		Short:         "Development intelligence daemon for AI coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(buildServeCmd(), buildStatusCmd(), buildVersionCmd())
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aidis %s\n", version)
		},
	}
}
