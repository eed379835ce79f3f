package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/rpc-relay/internal/config"
	"github.com/benvon/rpc-relay/internal/logger"
	"github.com/benvon/rpc-relay/internal/registry"
)

// NewListCmd creates the list command, which prints configured networks and
// their endpoints with credentials redacted.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <endpoints-file>",
		Short: "List configured networks and endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.LoadEndpoints(args[0])
			if err != nil {
				return fmt.Errorf("load endpoints: %w", err)
			}
			reg := registry.New(doc)
			for _, slug := range reg.Slugs() {
				endpoints, _ := reg.Resolve(slug)
				fmt.Printf("%s (%d endpoints)\n", slug, len(endpoints))
				for i, ep := range endpoints {
					auth := "no auth"
					if ep.AuthToken != "" {
						auth = "auth " + logger.RedactToken(ep.AuthToken)
					}
					fmt.Printf("  %d. %s (%s)\n", i+1, ep.URL, auth)
				}
			}
			return nil
		},
	}
}
