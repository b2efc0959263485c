package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// ContentStore is the remote content-store contract the orchestrator
// drives. GitHubStore is the production implementation; tests supply
// fakes.
type ContentStore interface {
	ListNewItems(since time.Time) ([]WorkItem, error)
	FetchFile(item WorkItem) ([]byte, error)
	Publish(repoPath, content, message string) error
	UpdateIndex(entry IndexEntry) error
	RepoStats() (map[string]any, error)
}

// Orchestrator owns the recurring run cycle: it discovers new items on
// a schedule, drives each through validate -> classify -> solve ->
// publish -> notify, and tracks run statistics. At most one run body
// executes at a time; triggers that fire while a run is active are
// coalesced, never queued.
type Orchestrator struct {
	cfg       Config
	store     ContentStore
	validator *Validator
	solver    Solver
	notifier  Notifier

	Events *EventBus
	stats  *RunStats

	running atomic.Bool // scheduler state: Stopped / Running

	mu        sync.Mutex
	runDone   chan struct{} // non-nil while a run body is active; closed when it finishes
	lastCheck time.Time     // discovery watermark
	nextRun   time.Time
	stopCh    chan struct{}

	loopWG sync.WaitGroup
}

func NewOrchestrator(cfg Config, store ContentStore, validator *Validator, solver Solver, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		validator: validator,
		solver:    solver,
		notifier:  notifier,
		Events:    &EventBus{},
		stats:     &RunStats{},
	}
}

// parseCheckSchedule resolves the trigger: an explicit 5-field cron
// expression when set, otherwise the interval as an @every descriptor.
func parseCheckSchedule(cfg Config) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	expr := strings.TrimSpace(cfg.CheckSchedule)
	if expr == "" {
		expr = fmt.Sprintf("@every %dm", cfg.CheckIntervalMinutes)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid check schedule '%s': %w", expr, err)
	}
	return sched, nil
}

// Start transitions to Running, launches the periodic trigger, and
// performs one eager run so cold-start has no initial latency.
// Starting an already-running orchestrator is a no-op.
func (o *Orchestrator) Start() error {
	if o.running.Swap(true) {
		log.Println("Scheduler is already running")
		return nil
	}

	sched, err := parseCheckSchedule(o.cfg)
	if err != nil {
		o.running.Store(false)
		return err
	}

	o.mu.Lock()
	o.stopCh = make(chan struct{})
	stopCh := o.stopCh
	o.mu.Unlock()

	o.loopWG.Add(1)
	go o.triggerLoop(sched, stopCh)

	log.Printf("Scheduler started interval=%dm schedule=%q", o.cfg.CheckIntervalMinutes, o.cfg.CheckSchedule)

	// Eager first run.
	o.RunOnce()
	return nil
}

func (o *Orchestrator) triggerLoop(sched cron.Schedule, stopCh chan struct{}) {
	defer o.loopWG.Done()

	for {
		now := time.Now().In(o.cfg.Location)
		next := sched.Next(now)

		o.mu.Lock()
		o.nextRun = next
		o.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			summary := o.RunOnce()
			log.Printf("scheduled run complete success=%v processed=%d errors=%d", summary.Success, summary.Processed, summary.Errors)
		}
	}
}

// Stop cancels the trigger and waits for any in-flight run to finish;
// item processing is never aborted mid-flight. Stopping an
// already-stopped orchestrator is a no-op.
func (o *Orchestrator) Stop() {
	if !o.running.Swap(false) {
		log.Println("Scheduler is not running")
		return
	}

	o.mu.Lock()
	if o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
	o.nextRun = time.Time{}
	o.mu.Unlock()

	o.loopWG.Wait()

	o.mu.Lock()
	done := o.runDone
	o.mu.Unlock()
	if done != nil {
		<-done
	}
	log.Println("Scheduler stopped")
}

// Running reports the scheduler state.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// ManualTrigger runs the pipeline out of band. It is subject to the
// same single-active-run rule as scheduled ticks.
func (o *Orchestrator) ManualTrigger() RunSummary {
	log.Println("Manual trigger initiated")
	return o.RunOnce()
}

// RunOnce executes one discover-and-process cycle. A call that arrives
// while another run is active is rejected immediately (coalesced), not
// queued, and leaves the statistics untouched. The active-run marker is
// taken under the same mutex Stop consults, so a concurrent Stop either
// sees the marker and waits for this run or observes it already gone.
func (o *Orchestrator) RunOnce() RunSummary {
	o.mu.Lock()
	if o.runDone != nil {
		o.mu.Unlock()
		log.Println("run skipped: a run is already in progress")
		return RunSummary{Success: false, Message: "a run is already in progress"}
	}
	done := make(chan struct{})
	o.runDone = done
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.runDone = nil
		o.mu.Unlock()
		close(done)
	}()

	start := time.Now()
	o.stats.RecordRunStart(start)
	log.Println("run start: checking for new problems")

	o.mu.Lock()
	since := o.lastCheck
	o.mu.Unlock()
	if since.IsZero() {
		since = start.Add(-time.Hour)
	}

	items, err := o.store.ListNewItems(since)
	if err != nil {
		msg := fmt.Sprintf("discovery failed: %v", err)
		log.Printf("run aborted: %s", msg)
		o.stats.RecordDiscoveryFailure(msg)
		return RunSummary{Success: false, Message: msg, Elapsed: time.Since(start)}
	}

	o.mu.Lock()
	o.lastCheck = start
	o.mu.Unlock()

	if len(items) == 0 {
		log.Println("run complete: no new files found")
		o.stats.RecordRunEnd(0, 0, start)
		return RunSummary{Success: true, Message: "No new files to process", Elapsed: time.Since(start)}
	}
	log.Printf("run found=%d new files", len(items))

	// Bounded worker pool; workers never return errors, so one item's
	// failure cannot cancel its siblings.
	results := make([]ItemResult, len(items))
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.WorkerCount)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = o.processItem(item)
			return nil
		})
	}
	_ = g.Wait()

	var processed, failed int
	for _, r := range results {
		if r.Success {
			processed++
		} else {
			failed++
		}
	}
	o.stats.RecordRunEnd(processed, failed, start)

	elapsed := time.Since(start)
	log.Printf("run complete processed=%d errors=%d elapsed=%.2fs", processed, failed, elapsed.Seconds())

	return RunSummary{
		Success:   true,
		NewItems:  len(items),
		Processed: processed,
		Errors:    failed,
		Elapsed:   elapsed,
		Message:   fmt.Sprintf("%d processed, %d errors", processed, failed),
		Results:   results,
	}
}

// processItem drives one item through the pipeline. Every failure is
// contained in the returned ItemResult; a solve that succeeded but
// could not be delivered keeps its solution attached so delivery can
// be retried without re-solving.
func (o *Orchestrator) processItem(item WorkItem) ItemResult {
	log.Printf("processing item path=%s", item.Path)
	o.Events.emitNewProblem(item)

	fail := func(reason string, solution *SolutionResult) ItemResult {
		log.Printf("item failed path=%s reason=%s", item.Path, reason)
		result := ItemResult{Item: item, Success: false, Err: reason, Solution: solution}
		o.notifyFailure(item, reason)
		o.Events.emitError(result)
		return result
	}

	data, err := o.store.FetchFile(item)
	if err != nil {
		return fail(fmt.Sprintf("download failed: %v", err), nil)
	}

	localPath, err := o.writeTempFile(item.Name, data)
	if err != nil {
		return fail(fmt.Sprintf("writing temp file: %v", err), nil)
	}
	defer os.Remove(localPath)

	if ok, reason := o.validator.ValidateSafety(localPath); !ok {
		return fail(fmt.Sprintf("File safety validation failed: %s", reason), nil)
	}

	sizeMB := float64(len(data)) / (1024 * 1024)
	if sizeMB > float64(o.cfg.MaxFileSizeMB) {
		return fail(fmt.Sprintf("File too large: %.1fMB (max %dMB)", sizeMB, o.cfg.MaxFileSizeMB), nil)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	text, ok := o.validator.ExtractText(localPath, ext)
	if !ok || strings.TrimSpace(text) == "" {
		return fail("Could not extract text content from file", nil)
	}

	verdict := o.validator.ValidateText(text)
	if !verdict.Valid {
		return fail(fmt.Sprintf("Mathematical content validation failed: %s", verdict.Reason), nil)
	}
	log.Printf("item validated path=%s score=%.2f", item.Path, verdict.Score)

	classification := ClassifyAndExtract(text)
	if len(classification.Expressions) == 0 {
		return fail("Could not extract mathematical expressions from the problem", nil)
	}
	log.Printf("item classified path=%s category=%s expressions=%d", item.Path, classification.Category, len(classification.Expressions))

	solution := o.solver.Solve(context.Background(), classification.Category, classification.Expressions, text, item.Name)
	if !solution.Success {
		return fail(solution.ErrorMessage, &solution)
	}

	solutionPath := SolutionRepoPath(o.cfg, item, solution.CompletedAt)
	document := FormatSolutionDocument(&solution)
	message := fmt.Sprintf("Add solution for %s", item.Name)

	deliverFail := func(stage string, err error) ItemResult {
		reason := fmt.Sprintf("solved but not delivered: %s: %v", stage, err)
		log.Printf("item delivery failed path=%s reason=%s", item.Path, reason)
		result := ItemResult{Item: item, Success: false, Err: reason, Solution: &solution, SolutionPath: solutionPath}
		o.Events.emitError(result)
		return result
	}

	if err := o.store.Publish(solutionPath, document, message); err != nil {
		return deliverFail("publish", err)
	}

	entry := IndexEntry{
		ProblemName:    item.Name,
		Status:         "Solved Successfully",
		SolutionPath:   solutionPath,
		ProcessingTime: solution.Elapsed,
	}
	if err := o.store.UpdateIndex(entry); err != nil {
		return deliverFail("index update", err)
	}

	if o.notifier.IsConfigured() {
		subject, textBody, htmlBody := solutionNotificationBodies(&solution, solutionPath)
		if err := o.notifier.Send(o.cfg.NotifyRecipient, subject, textBody, htmlBody); err != nil {
			return deliverFail("notify", err)
		}
	}

	log.Printf("item processed path=%s solution=%s", item.Path, solutionPath)
	result := ItemResult{Item: item, Success: true, Solution: &solution, SolutionPath: solutionPath}
	o.Events.emitSolutionComplete(result)
	return result
}

func (o *Orchestrator) notifyFailure(item WorkItem, reason string) {
	if !o.cfg.NotifyOnFailure || !o.notifier.IsConfigured() {
		return
	}
	subject, textBody := failureNotificationBodies(item, reason)
	if err := o.notifier.Send(o.cfg.NotifyRecipient, subject, textBody, ""); err != nil {
		log.Printf("failure notification error path=%s: %v", item.Path, err)
	}
}

// writeTempFile stages item content under a unique name so items that
// share a base name never collide while workers run in parallel. The
// original base name is kept as the suffix because extraction
// dispatches on the extension.
func (o *Orchestrator) writeTempFile(name string, data []byte) (string, error) {
	if err := os.MkdirAll(o.cfg.TempDir, 0755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(o.cfg.TempDir, "*_"+filepath.Base(name))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// SchedulerStatus is the structured result of a status query.
type SchedulerStatus struct {
	Running              bool            `json:"is_running"`
	CheckIntervalMinutes int             `json:"check_interval_minutes"`
	CheckSchedule        string          `json:"check_schedule,omitempty"`
	NextRun              *time.Time      `json:"next_run"`
	Stats                StatsSnapshot   `json:"stats"`
	Services             map[string]bool `json:"services_status"`
}

// Status reports run-state, schedule, statistics, and best-effort
// collaborator liveness. Probe failures mark the collaborator
// unavailable; they never propagate.
func (o *Orchestrator) Status() SchedulerStatus {
	status := SchedulerStatus{
		Running:              o.running.Load(),
		CheckIntervalMinutes: o.cfg.CheckIntervalMinutes,
		CheckSchedule:        o.cfg.CheckSchedule,
		Stats:                o.stats.Snapshot(),
	}

	if status.Running {
		o.mu.Lock()
		if !o.nextRun.IsZero() {
			t := o.nextRun
			status.NextRun = &t
		}
		o.mu.Unlock()
	}

	_, storeErr := o.store.RepoStats()
	_, solverConfigured := o.solver.(*AnthropicSolver)
	status.Services = map[string]bool{
		"store":    storeErr == nil,
		"solver":   solverConfigured,
		"notifier": o.notifier.IsConfigured(),
	}
	return status
}
