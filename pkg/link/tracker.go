// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"sync"
	"time"

	"github.com/ziutektech/tanklink/pkg/wire"
)

// DefaultTrackerSize bounds the number of unanswered commands remembered
const DefaultTrackerSize = 256

// DefaultAverageWindow is the number of samples in a moving average
const DefaultAverageWindow = 10

// Sent is a command remembered by a Tracker
type Sent struct {
	Command wire.Command
	At      time.Time
}

type trackerKey struct {
	op wire.Opcode
	id uint64
}

// Tracker remembers sent commands by (opcode, id) until their result comes
// back. Ids are random and not guaranteed unique; a colliding send replaces
// the older entry.
type Tracker struct {
	mu      sync.Mutex
	size    int
	pending map[trackerKey]Sent
}

// NewTracker creates a tracker holding at most size commands
func NewTracker(size int) *Tracker {
	if size < 1 {
		size = DefaultTrackerSize
	}
	return &Tracker{size: size, pending: make(map[trackerKey]Sent, size)}
}

// Record remembers cmd as sent at t. When full, the oldest entry is evicted.
func (t *Tracker) Record(cmd wire.Command, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := trackerKey{cmd.Opcode, cmd.ID}
	if _, ok := t.pending[k]; !ok && len(t.pending) >= t.size {
		var oldest trackerKey
		var oldestAt time.Time
		first := true
		for key, s := range t.pending {
			if first || s.At.Before(oldestAt) {
				oldest, oldestAt, first = key, s.At, false
			}
		}
		delete(t.pending, oldest)
	}
	t.pending[k] = Sent{Command: cmd, At: at}
}

// Take removes and returns the command matching op and id
func (t *Tracker) Take(op wire.Opcode, id uint64) (Sent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := trackerKey{op, id}
	s, ok := t.pending[k]
	if ok {
		delete(t.pending, k)
	}
	return s, ok
}

// Forget drops a command that never made it onto the wire
func (t *Tracker) Forget(op wire.Opcode, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, trackerKey{op, id})
}

// Len returns the number of unanswered commands
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Average is a moving average over the last few durations
type Average struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// NewAverage creates an average over window samples
func NewAverage(window int) *Average {
	if window < 1 {
		window = DefaultAverageWindow
	}
	return &Average{samples: make([]time.Duration, window)}
}

// Add records a sample, replacing the oldest once the window is full
func (a *Average) Add(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[a.next] = d
	a.next++
	if a.next == len(a.samples) {
		a.next = 0
		a.full = true
	}
}

// Value returns the mean of the recorded samples, zero when empty
func (a *Average) Value() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	if a.full {
		n = len(a.samples)
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range a.samples[:n] {
		sum += d
	}
	return sum / time.Duration(n)
}
