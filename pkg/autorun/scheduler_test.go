// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package autorun

import (
	"testing"
	"time"

	"github.com/ziutektech/tanklink/pkg/wire"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Add(d time.Duration) { c.now = c.now.Add(d) }

type call struct {
	op   string
	a, b uint8
}

type recorder struct{ calls []call }

func (r *recorder) Move(dir wire.Direction, speed uint8) {
	r.calls = append(r.calls, call{"move", uint8(dir), speed})
}
func (r *recorder) Stop() { r.calls = append(r.calls, call{op: "stop"}) }
func (r *recorder) SetLight(l wire.Light, level uint8) {
	r.calls = append(r.calls, call{"light", uint8(l), level})
}
func (r *recorder) SetBuzzer(level uint8) { r.calls = append(r.calls, call{op: "buzzer", a: level}) }

func (r *recorder) last() call {
	if len(r.calls) == 0 {
		return call{}
	}
	return r.calls[len(r.calls)-1]
}

func newTestScheduler(p Program) (*Scheduler, *fakeClock, *recorder) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	rec := &recorder{}
	return NewScheduler(p, rec, WithClock(clk)), clk, rec
}

func TestNonLoopingWithZeroAndInfinite(t *testing.T) {
	s, clk, _ := newTestScheduler(Program{Actions: []Action{
		Move(wire.DirForward, 255, 100*time.Millisecond),
		Stop(0),
		Stop(Infinite),
	}})

	s.Start()
	for i := 0; i < 10; i++ {
		clk.Add(10 * time.Millisecond)
		s.Advance()
	}
	if s.Current() != 1 {
		t.Fatalf("after 100ms Current() = %d, want 1", s.Current())
	}

	clk.Add(10 * time.Millisecond)
	s.Advance()
	if s.Current() != 2 {
		t.Fatalf("zero duration action: Current() = %d, want 2", s.Current())
	}

	for i := 0; i < 100; i++ {
		clk.Add(time.Second)
		s.Advance()
	}
	if s.Current() != 2 || !s.Running() {
		t.Errorf("infinite action advanced: Current() = %d, Running() = %v", s.Current(), s.Running())
	}
}

func TestNonLoopingCoarseTicks(t *testing.T) {
	s, clk, _ := newTestScheduler(Program{Actions: []Action{
		Move(wire.DirForward, 255, 100*time.Millisecond),
		Stop(0),
		Stop(Infinite),
	}})

	s.Start()
	clk.Add(60 * time.Millisecond)
	s.Advance()
	if s.Current() != 0 {
		t.Fatalf("after 60ms Current() = %d, want 0", s.Current())
	}
	clk.Add(60 * time.Millisecond)
	s.Advance()
	if s.Current() != 1 {
		t.Fatalf("after 120ms Current() = %d, want 1", s.Current())
	}
	clk.Add(time.Millisecond)
	s.Advance()
	if s.Current() != 2 {
		t.Fatalf("Current() = %d, want 2", s.Current())
	}
}

func TestLoopingWraps(t *testing.T) {
	s, clk, _ := newTestScheduler(Program{Looping: true, Actions: []Action{
		Move(wire.DirForward, 100, 50*time.Millisecond),
		Move(wire.DirLeft, 100, 50*time.Millisecond),
		Stop(50 * time.Millisecond),
	}})

	s.Start()
	seen := map[int]bool{}
	for elapsed := 0; elapsed < 151; elapsed++ {
		clk.Add(time.Millisecond)
		s.Advance()
		seen[s.Current()] = true
	}
	if s.Loops() < 1 {
		t.Errorf("Loops() = %d after 151ms, want >= 1", s.Loops())
	}
	if s.Current() != 0 {
		t.Errorf("Current() = %d, want 0 after wrap", s.Current())
	}
	if !seen[1] || !seen[2] {
		t.Errorf("actions visited = %v", seen)
	}
	if !s.Running() {
		t.Error("looping program stopped")
	}
}

func TestNonLoopingStopsAtEnd(t *testing.T) {
	s, clk, _ := newTestScheduler(Program{Actions: []Action{
		Move(wire.DirForward, 100, 50*time.Millisecond),
		Stop(50 * time.Millisecond),
	}})

	s.Start()
	for i := 0; i < 20; i++ {
		clk.Add(10 * time.Millisecond)
		s.Advance()
	}
	if s.Running() {
		t.Error("non-looping program still running past its end")
	}
	if s.Loops() != 0 {
		t.Errorf("Loops() = %d, want 0", s.Loops())
	}
}

func TestEffectsReappliedEveryTick(t *testing.T) {
	s, clk, rec := newTestScheduler(Program{Actions: []Action{
		Move(wire.DirRight, 180, Infinite),
	}})

	s.Start()
	if len(rec.calls) != 1 || rec.last() != (call{"move", uint8(wire.DirRight), 180}) {
		t.Fatalf("Start() calls = %+v, want one immediate move", rec.calls)
	}
	for i := 0; i < 5; i++ {
		clk.Add(10 * time.Millisecond)
		s.Advance()
	}
	if len(rec.calls) != 6 {
		t.Errorf("calls = %d, want 6 (start + 5 ticks)", len(rec.calls))
	}
	for _, c := range rec.calls {
		if c.op != "move" {
			t.Errorf("unexpected call %+v", c)
		}
	}
}

func TestEffectTypes(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   call
	}{
		{"move", Move(wire.DirBackward, 90, Infinite), call{"move", uint8(wire.DirBackward), 90}},
		{"stop", Stop(Infinite), call{op: "stop"}},
		{"lights", Lights(wire.LightRear, 255, Infinite), call{"light", uint8(wire.LightRear), 255}},
		{"buzzer", Buzzer(128, Infinite), call{op: "buzzer", a: 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, rec := newTestScheduler(Program{Actions: []Action{tt.action}})
			s.Start()
			if rec.last() != tt.want {
				t.Errorf("effect = %+v, want %+v", rec.last(), tt.want)
			}
		})
	}
}

func TestStopAndRestart(t *testing.T) {
	s, clk, rec := newTestScheduler(Program{Actions: []Action{
		Move(wire.DirForward, 255, 10*time.Millisecond),
		Move(wire.DirLeft, 255, Infinite),
	}})

	s.Start()
	clk.Add(10 * time.Millisecond)
	s.Advance()
	if s.Current() != 1 {
		t.Fatalf("Current() = %d, want 1", s.Current())
	}

	s.Stop()
	if s.Running() || s.Current() != 1 {
		t.Errorf("Stop(): Running() = %v, Current() = %d, want false, 1", s.Running(), s.Current())
	}

	n := len(rec.calls)
	clk.Add(time.Second)
	s.Advance()
	s.NextAction()
	if len(rec.calls) != n || s.Current() != 1 {
		t.Error("stopped scheduler acted on Advance/NextAction")
	}

	s.Restart()
	if !s.Running() || s.Current() != 0 {
		t.Errorf("Restart(): Running() = %v, Current() = %d", s.Running(), s.Current())
	}
	if s.Remaining() != 10*time.Millisecond {
		t.Errorf("Remaining() = %v, want 10ms", s.Remaining())
	}
	if rec.last() != (call{"move", uint8(wire.DirForward), 255}) {
		t.Errorf("Restart() effect = %+v", rec.last())
	}
}

func TestStartTimestampsNow(t *testing.T) {
	s, clk, _ := newTestScheduler(Program{Actions: []Action{
		Stop(100 * time.Millisecond),
		Stop(Infinite),
	}})

	// time passing before Start must not count against the first action
	clk.Add(time.Hour)
	s.Start()
	clk.Add(50 * time.Millisecond)
	s.Advance()
	if s.Current() != 0 || s.Remaining() != 50*time.Millisecond {
		t.Errorf("Current() = %d, Remaining() = %v", s.Current(), s.Remaining())
	}
}

func TestEmptyProgramNeverRuns(t *testing.T) {
	s, _, rec := newTestScheduler(Program{})
	s.Start()
	s.Advance()
	if s.Running() || len(rec.calls) != 0 {
		t.Error("empty program should not run")
	}
}
