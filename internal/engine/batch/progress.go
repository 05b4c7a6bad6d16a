package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks finished items. Safe for concurrent use.
type Progress struct {
	totalItems     int
	processedItems int
	failedItems    int
	startTime      time.Time
	lastUpdateTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a progress tracker for totalItems.
func NewProgress(totalItems int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// AddProcessed records one finished item.
func (p *Progress) AddProcessed(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems++
	if failed {
		p.failedItems++
	}
	p.lastUpdateTime = time.Now()
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percentCompleteUnsafe()
}

// IsComplete returns true if all items have been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processedItems >= p.totalItems
}

// ElapsedTime returns the time elapsed since processing started.
func (p *Progress) ElapsedTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.startTime)
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:      p.totalItems,
		ProcessedItems:  p.processedItems,
		FailedItems:     p.failedItems,
		StartTime:       p.startTime,
		LastUpdateTime:  p.lastUpdateTime,
		PercentComplete: p.percentCompleteUnsafe(),
		ElapsedTime:     time.Since(p.startTime),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	FailedItems     int
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
}

// percentCompleteUnsafe must be called with mu held.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.totalItems == 0 {
		return percentMultiplier
	}
	return (float64(p.processedItems) / float64(p.totalItems)) * percentMultiplier
}
