// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFOWithInterleaving(t *testing.T) {
	r := NewRing[int](4)
	next := 0
	want := 0

	// Push two, pop one, repeatedly, wrapping the indices several times
	for round := 0; round < 20; round++ {
		for i := 0; i < 2 && r.Len() < r.Cap(); i++ {
			if !r.TryPush(next) {
				t.Fatalf("TryPush(%d) rejected with Len=%d", next, r.Len())
			}
			next++
		}
		v, ok := r.TryPop()
		if !ok {
			t.Fatalf("round %d: TryPop() empty", round)
		}
		if v != want {
			t.Fatalf("round %d: TryPop() = %d, want %d", round, v, want)
		}
		want++
	}
	for {
		v, ok := r.TryPop()
		if !ok {
			break
		}
		if v != want {
			t.Fatalf("drain: TryPop() = %d, want %d", v, want)
		}
		want++
	}
	if want != next {
		t.Errorf("popped %d elements, pushed %d", want, next)
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", r.Dropped())
	}
}

func TestSaturationDropsNewest(t *testing.T) {
	tests := []struct {
		name  string
		extra int
	}{
		{"exactly full", 0},
		{"one over", 1},
		{"many over", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int](DefaultCapacity)
			total := DefaultCapacity + tt.extra
			stored := 0
			for i := 0; i < total; i++ {
				if r.TryPush(i) {
					stored++
				}
			}
			if stored != DefaultCapacity {
				t.Errorf("stored %d, want %d", stored, DefaultCapacity)
			}
			if r.Dropped() != uint64(tt.extra) {
				t.Errorf("Dropped() = %d, want %d", r.Dropped(), tt.extra)
			}
			// The survivors are the first 64, in order
			for i := 0; i < DefaultCapacity; i++ {
				v, ok := r.TryPop()
				if !ok || v != i {
					t.Fatalf("TryPop() = %d, %v, want %d", v, ok, i)
				}
			}
			if _, ok := r.TryPop(); ok {
				t.Error("ring should be empty")
			}
		})
	}
}

func TestDefaultCapacity(t *testing.T) {
	if got := NewRing[string](0).Cap(); got != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", got, DefaultCapacity)
	}
}

func TestWait(t *testing.T) {
	r := NewRing[int](2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on empty ring = %v, want DeadlineExceeded", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- r.Wait(context.Background())
	}()
	time.Sleep(5 * time.Millisecond)
	r.TryPush(1)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after push")
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r := NewRing[int](DefaultCapacity)
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.TryPush(i) {
				time.Sleep(time.Microsecond)
			}
		}
	}()

	want := 0
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for want < n {
		if err := r.Wait(ctx); err != nil {
			t.Fatalf("Wait() = %v after %d elements", err, want)
		}
		for {
			v, ok := r.TryPop()
			if !ok {
				break
			}
			if v != want {
				t.Fatalf("TryPop() = %d, want %d", v, want)
			}
			want++
		}
	}
	wg.Wait()
}
