package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/rpc-relay/internal/config"
)

// NewValidateCmd creates the validate command, which checks an endpoints
// document without starting the relay.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <endpoints-file>",
		Short: "Validate an endpoints document",
		Long:  "Parse and validate an endpoints document (JSON or YAML) the same way the server does at startup.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.LoadEndpoints(args[0])
			if err != nil {
				return fmt.Errorf("validate endpoints: %w", err)
			}
			total := 0
			for _, endpoints := range doc {
				total += len(endpoints)
			}
			fmt.Printf("OK: %d networks, %d endpoints\n", len(doc), total)
			return nil
		},
	}
}
