// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"testing"
	"time"

	"github.com/ziutektech/tanklink/pkg/wire"
)

func TestTrackerTake(t *testing.T) {
	tr := NewTracker(4)
	base := time.Unix(1700000000, 0)

	move := wire.NewMoveCommand(wire.DirForward, 1)
	move.ID = 7
	tr.Record(move, base)

	if _, ok := tr.Take(wire.OpStop, 7); ok {
		t.Error("Take() matched a different opcode with the same id")
	}
	s, ok := tr.Take(wire.OpMove, 7)
	if !ok || s.Command != move || !s.At.Equal(base) {
		t.Errorf("Take() = %+v, %v", s, ok)
	}
	if _, ok := tr.Take(wire.OpMove, 7); ok {
		t.Error("Take() returned the same command twice")
	}
}

func TestTrackerEvictsOldest(t *testing.T) {
	tr := NewTracker(3)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 4; i++ {
		c := wire.NewStopCommand()
		c.ID = uint64(i)
		tr.Record(c, base.Add(time.Duration(i)*time.Second))
	}
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	if _, ok := tr.Take(wire.OpStop, 0); ok {
		t.Error("oldest command was not evicted")
	}
	if _, ok := tr.Take(wire.OpStop, 3); !ok {
		t.Error("newest command missing")
	}
}

func TestAverage(t *testing.T) {
	a := NewAverage(3)
	if a.Value() != 0 {
		t.Errorf("empty Value() = %v", a.Value())
	}
	a.Add(10 * time.Millisecond)
	a.Add(20 * time.Millisecond)
	if got := a.Value(); got != 15*time.Millisecond {
		t.Errorf("Value() = %v, want 15ms", got)
	}
	a.Add(30 * time.Millisecond)
	a.Add(40 * time.Millisecond) // replaces 10ms
	if got := a.Value(); got != 30*time.Millisecond {
		t.Errorf("Value() = %v, want 30ms", got)
	}
}
