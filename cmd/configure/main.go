package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/rpc-relay/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "rpc-relay-configure",
		Short: "Configuration tool for the RPC relay",
		Long:  "CLI tool for validating and inspecting the relay's endpoints document",
	}

	rootCmd.AddCommand(commands.NewValidateCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewProbeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
