package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one discover-and-process cycle and exit",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg := LoadConfig()
	orch := buildOrchestrator(cfg)

	summary := orch.RunOnce()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Success:   %v\n", summary.Success)
	fmt.Fprintf(out, "New items: %d\n", summary.NewItems)
	fmt.Fprintf(out, "Processed: %d\n", summary.Processed)
	fmt.Fprintf(out, "Errors:    %d\n", summary.Errors)
	fmt.Fprintf(out, "Elapsed:   %.2fs\n", summary.Elapsed.Seconds())
	for _, r := range summary.Results {
		if r.Success {
			fmt.Fprintf(out, "  ok   %s -> %s\n", r.Item.Name, r.SolutionPath)
		} else {
			fmt.Fprintf(out, "  fail %s: %s\n", r.Item.Name, r.Err)
		}
	}
	if !summary.Success {
		return fmt.Errorf("run failed: %s", summary.Message)
	}
	return nil
}
