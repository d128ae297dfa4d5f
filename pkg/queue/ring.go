// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package queue provides the bounded hand-off between the receive goroutine
// and the consumer of a link.
package queue

import (
	"context"
	"sync"
)

// DefaultCapacity is the number of results buffered between polls
const DefaultCapacity = 64

// Ring is a fixed-capacity FIFO. A push onto a full ring is rejected and the
// element discarded (drop-newest); existing elements are never overwritten.
// It is safe for one producer and one consumer running concurrently.
type Ring[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int // next element to pop
	count   int
	dropped uint64
	signal  chan struct{}
}

// NewRing creates a ring holding up to capacity elements.
// A capacity below 1 selects DefaultCapacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		buf:    make([]T, capacity),
		signal: make(chan struct{}, 1),
	}
}

// TryPush appends v and reports whether it was stored
func (r *Ring[T]) TryPush(v T) bool {
	r.mu.Lock()
	if r.count == len(r.buf) {
		r.dropped++
		r.mu.Unlock()
		return false
	}
	r.buf[(r.head+r.count)%len(r.buf)] = v
	r.count++
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes and returns the oldest element without blocking
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return v, true
}

// Wait blocks until the ring is non-empty or ctx is done
func (r *Ring[T]) Wait(ctx context.Context) error {
	for {
		if r.Len() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.signal:
		}
	}
}

// Len returns the number of buffered elements
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Dropped returns the number of rejected pushes
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
