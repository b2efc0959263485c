package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := LoadConfig()
	orch := buildOrchestrator(cfg)

	orch.Events.OnSolutionComplete(func(r ItemResult) {
		log.Printf("solved name=%s published=%s", r.Item.Name, r.SolutionPath)
	})
	orch.Events.OnError(func(r ItemResult) {
		log.Printf("failed name=%s reason=%s", r.Item.Name, r.Err)
	})

	server := NewAPIServer(cfg.HTTPAddr, orch)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	if err := orch.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	orch.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	return nil
}
