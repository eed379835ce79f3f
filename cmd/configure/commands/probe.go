package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/rpc-relay/internal/config"
)

const probeTimeout = 10 * time.Second

// NewProbeCmd creates the probe command, which sends a web3_clientVersion
// call to every endpoint of a network and reports the result.
func NewProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <endpoints-file> <network>",
		Short: "Probe every endpoint of a network with a web3_clientVersion call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.LoadEndpoints(args[0])
			if err != nil {
				return fmt.Errorf("load endpoints: %w", err)
			}
			endpoints, ok := doc[args[1]]
			if !ok {
				return fmt.Errorf("network %q is not configured", args[1])
			}

			failures := 0
			for i, ep := range endpoints {
				version, err := probeEndpoint(cmd.Context(), ep)
				if err != nil {
					failures++
					fmt.Printf("  %d. %s FAILED: %v\n", i+1, ep.URL, err)
					continue
				}
				fmt.Printf("  %d. %s OK: %s\n", i+1, ep.URL, version)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d endpoints failed", failures, len(endpoints))
			}
			return nil
		},
	}
}

func probeEndpoint(ctx context.Context, ep config.Endpoint) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	payload := []byte(`{"jsonrpc":"2.0","id":1,"method":"web3_clientVersion","params":[]}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.AuthToken != "" {
		req.Header.Set("Authorization", ep.AuthToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Result string `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if body.Error != nil {
		return "", fmt.Errorf("rpc error %d: %s", body.Error.Code, body.Error.Message)
	}
	return body.Result, nil
}
