package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// apiEnvelope is the uniform response shape: endpoints always answer
// with a success flag and a message, never an unhandled fault.
type apiEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewAPIServer wires the HTTP front end onto the orchestrator's public
// operations.
func NewAPIServer(addr string, orch *Orchestrator) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: orch.Status()})
	})

	mux.HandleFunc("POST /api/trigger", func(w http.ResponseWriter, r *http.Request) {
		summary := orch.ManualTrigger()
		code := http.StatusOK
		if !summary.Success && summary.Message == "a run is already in progress" {
			code = http.StatusConflict
		}
		writeJSON(w, code, apiEnvelope{Success: summary.Success, Message: summary.Message, Data: summary})
	})

	mux.HandleFunc("POST /api/scheduler/start", func(w http.ResponseWriter, r *http.Request) {
		if orch.Running() {
			writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Message: "scheduler already running"})
			return
		}
		if err := orch.Start(); err != nil {
			writeJSON(w, http.StatusInternalServerError, apiEnvelope{Success: false, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Message: "scheduler started"})
	})

	mux.HandleFunc("POST /api/scheduler/stop", func(w http.ResponseWriter, r *http.Request) {
		if !orch.Running() {
			writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Message: "scheduler already stopped"})
			return
		}
		orch.Stop()
		writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Message: "scheduler stopped"})
	})

	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api encode error: %v", err)
	}
}
