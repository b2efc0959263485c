package main

import (
	"sync"
	"time"
)

// RunStats holds the process-lifetime counters. It is the only state
// shared across runs; writes happen at run boundaries only, reads via
// Snapshot, all behind one mutex.
type RunStats struct {
	mu sync.Mutex

	totalRuns      int
	successfulRuns int
	failedRuns     int
	problemsSolved int
	problemsFailed int
	lastRun        time.Time
	lastSuccess    time.Time
	lastError      string
}

// StatsSnapshot is the read-side copy returned to status queries.
type StatsSnapshot struct {
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	ProblemsSolved int        `json:"problems_solved"`
	ProblemsFailed int        `json:"problems_failed"`
	LastRun        *time.Time `json:"last_run"`
	LastSuccess    *time.Time `json:"last_success"`
	LastError      string     `json:"last_error,omitempty"`
}

func (s *RunStats) RecordRunStart(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRuns++
	s.lastRun = at
}

// RecordDiscoveryFailure marks the whole run failed; no items were
// processed.
func (s *RunStats) RecordDiscoveryFailure(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedRuns++
	s.lastError = errMsg
}

// RecordRunEnd applies one run's item counts. A run with zero item
// errors counts as successful, even when nothing was discovered.
func (s *RunStats) RecordRunEnd(solved, failed int, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problemsSolved += solved
	s.problemsFailed += failed
	if failed == 0 {
		s.successfulRuns++
		s.lastSuccess = startedAt
	} else {
		s.failedRuns++
	}
}

func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalRuns:      s.totalRuns,
		SuccessfulRuns: s.successfulRuns,
		FailedRuns:     s.failedRuns,
		ProblemsSolved: s.problemsSolved,
		ProblemsFailed: s.problemsFailed,
		LastError:      s.lastError,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		snap.LastRun = &t
	}
	if !s.lastSuccess.IsZero() {
		t := s.lastSuccess
		snap.LastSuccess = &t
	}
	return snap
}
