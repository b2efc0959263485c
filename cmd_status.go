package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	addr string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running serve instance for its status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.addr, "addr", "http://localhost:8080", "Base URL of the running instance")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	resp, err := http.Get(statusFlags.addr + "/api/status")
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
