// Package series provides the bounded, append-only observation buffer that
// feeds the forecaster.
//
// The buffer is a fixed-capacity ring: appends are O(1), the oldest entry is
// evicted once the retention bound is exceeded, and reads always return
// observations in chronological order. It is safe for the single pipeline
// writer and any number of concurrent readers.
package series

import (
	"fmt"
	"sync"
	"time"

	"github.com/citygrid/trafficpulse/pkg/traffic"
)

// OutOfOrderError reports an append whose timestamp does not advance the
// series. The buffer is left unchanged.
type OutOfOrderError struct {
	Last time.Time
	Got  time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order append: %s does not advance last timestamp %s",
		e.Got.Format(time.RFC3339), e.Last.Format(time.RFC3339))
}

// Buffer is a fixed-capacity rolling window of observations.
type Buffer struct {
	mu    sync.RWMutex
	data  []traffic.Observation
	head  int // index of the oldest entry
	count int
}

// NewBuffer creates a buffer retaining the most recent capacity observations.
// Capacity must be positive; a non-positive value is treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		data: make([]traffic.Observation, capacity),
	}
}

// Append adds an observation. Timestamps must be strictly increasing;
// violating appends return *OutOfOrderError and leave the buffer unchanged.
// Once the buffer is full the oldest observation is evicted.
func (b *Buffer) Append(obs traffic.Observation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count > 0 {
		last := b.data[(b.head+b.count-1)%len(b.data)]
		if !obs.Timestamp.After(last.Timestamp) {
			return &OutOfOrderError{Last: last.Timestamp, Got: obs.Timestamp}
		}
	}

	if b.count < len(b.data) {
		b.data[(b.head+b.count)%len(b.data)] = obs
		b.count++
		return nil
	}

	// Full: overwrite the oldest slot and advance the head.
	b.data[b.head] = obs
	b.head = (b.head + 1) % len(b.data)
	return nil
}

// Window returns the most recent n observations in chronological order, or
// fewer when less history exists. The returned slice is a copy; callers may
// retain it across ticks.
func (b *Buffer) Window(n int) []traffic.Observation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	out := make([]traffic.Observation, n)
	start := b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.data[(b.head+start+i)%len(b.data)]
	}
	return out
}

// All returns the full retained history in chronological order.
func (b *Buffer) All() []traffic.Observation {
	b.mu.RLock()
	n := b.count
	b.mu.RUnlock()
	return b.Window(n)
}

// Last returns the most recent observation, if any.
func (b *Buffer) Last() (traffic.Observation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return traffic.Observation{}, false
	}
	return b.data[(b.head+b.count-1)%len(b.data)], true
}

// Len returns the number of retained observations.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the retention bound.
func (b *Buffer) Cap() int {
	return len(b.data)
}
