package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mathsolver",
	Short: "Automated math problem solver bot",
	Long: `mathsolver monitors a GitHub repository for new mathematical problem
submissions, validates and classifies them, routes them to a solving
capability, and publishes the solutions back to the repository.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildOrchestrator(cfg Config) *Orchestrator {
	store := NewGitHubStore(cfg)
	validator := NewValidator(cfg)
	solver := NewSolver(cfg)
	notifier := NewNotifier(cfg)
	return NewOrchestrator(cfg, store, validator, solver, notifier)
}
