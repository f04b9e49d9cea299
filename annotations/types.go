// Package annotations provides a low-overhead event system for
// tracking join-evaluation metrics and debugging information. A nil
// handler disables collection entirely, so instrumented code paths
// cost nothing in the common case.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Engine lifecycle
	EngineInvoked  = "engine/invoked"
	EngineComplete = "engine/completed"

	// Yannakakis passes
	YannakakisReduce = "yannakakis/reduce"
	YannakakisJoin   = "yannakakis/join"

	// GenericJoin recursion
	GenericJoinExtend = "genericjoin/extend"
	GenericJoinPrune  = "genericjoin/prune"

	// Decomposition search
	DecompExpand   = "decomp/expand"
	DecompSolution = "decomp/solution"
	DecompCover    = "decomp/cover"

	// Join tree construction
	JoinTreeBuilt = "jointree/built"

	// Baseline joins
	JoinHash   = "join/hash"
	JoinNested = "join/nested"

	// Errors
	ErrorCyclicQuery   = "error/query.cyclic"
	ErrorWidthExceeded = "error/width.exceeded"
)

// Event represents a single annotation event during evaluation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during evaluation.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector. A nil handler
// produces a disabled collector.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 64),
	}
}

// Enabled reports whether events are being recorded. Callers can skip
// building event data maps when false.
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Handler returns the underlying event handler.
func (c *Collector) Handler() Handler {
	return c.handler
}

// Add records a new event. Thread-safe.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event whose duration started at start.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Reset clears the collector for reuse.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
