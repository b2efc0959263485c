package main

import (
	"log"
	"sync"
)

// EventBus fans lifecycle events out to subscribers. Each event kind
// has its own registration method carrying its own payload type, so
// there is no stringly-typed dispatch to mistype. Subscriber panics
// are recovered and logged; they never reach the pipeline.
type EventBus struct {
	mu               sync.RWMutex
	newProblem       []func(WorkItem)
	solutionComplete []func(ItemResult)
	itemError        []func(ItemResult)
}

func (b *EventBus) OnNewProblem(fn func(WorkItem)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newProblem = append(b.newProblem, fn)
}

func (b *EventBus) OnSolutionComplete(fn func(ItemResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.solutionComplete = append(b.solutionComplete, fn)
}

func (b *EventBus) OnError(fn func(ItemResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.itemError = append(b.itemError, fn)
}

func (b *EventBus) emitNewProblem(item WorkItem) {
	b.mu.RLock()
	subscribers := b.newProblem
	b.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("on_new_problem", func() { fn(item) })
	}
}

func (b *EventBus) emitSolutionComplete(result ItemResult) {
	b.mu.RLock()
	subscribers := b.solutionComplete
	b.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("on_solution_complete", func() { fn(result) })
	}
}

func (b *EventBus) emitError(result ItemResult) {
	b.mu.RLock()
	subscribers := b.itemError
	b.mu.RUnlock()
	for _, fn := range subscribers {
		safeInvoke("on_error", func() { fn(result) })
	}
}

func safeInvoke(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("callback panic event=%s: %v", event, r)
		}
	}()
	fn()
}
