package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidisdev/aidis/internal/config"
	"github.com/aidisdev/aidis/internal/portman"
)

// buildStatusCmd creates the "status" command: discover a running daemon
// through the port registry and print its health.
func buildStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runStatus(cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func runStatus(cmd *cobra.Command, cfg *config.Config) error {
	ports := portman.New(cfg.Paths.PortRegistry, cfg.Server.PreferredPort)
	port, ok := ports.DiscoverServicePort(cfg.Server.ServiceName)
	if !ok {
		return fmt.Errorf("no registered instance of %s; is the daemon running?", cfg.Server.ServiceName)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/readyz", port))
	if err != nil {
		return fmt.Errorf("daemon registered on port %d but unreachable: %w", port, err)
	}
	defer resp.Body.Close()

	var ready struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Snapshot struct {
			Status        string `json:"status"`
			Version       string `json:"version"`
			UptimeSeconds int64  `json:"uptimeSeconds"`
			Breaker       string `json:"breaker"`
			Database      struct {
				Healthy     bool    `json:"healthy"`
				Utilization float64 `json:"utilization"`
			} `json:"database"`
		} `json:"snapshot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ready); err != nil {
		return fmt.Errorf("decode status response: %w", err)
	}
	snap := ready.Snapshot

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "aidis %s on port %d\n", snap.Version, port)
	fmt.Fprintf(out, "  status:   %s\n", ready.Status)
	fmt.Fprintf(out, "  uptime:   %s\n", (time.Duration(snap.UptimeSeconds) * time.Second).String())
	fmt.Fprintf(out, "  database: %s utilization=%.0f%%\n", ready.Database, snap.Database.Utilization*100)
	fmt.Fprintf(out, "  breaker:  %s\n", snap.Breaker)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon is not ready")
	}
	return nil
}
