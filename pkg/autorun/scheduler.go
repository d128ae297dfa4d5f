// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package autorun plays back timed action programs on the tank.
//
// The scheduler is driven by periodic Advance calls from the device loop. It
// has no goroutines or locks of its own and must only be used from that loop.
package autorun

import (
	"time"

	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// Actuator is the hardware surface the scheduler drives
type Actuator interface {
	Move(dir wire.Direction, speed uint8)
	Stop()
	SetLight(light wire.Light, level uint8)
	SetBuzzer(level uint8)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger for action transitions
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.log = observability.OrNop(l) }
}

// Scheduler sequences a Program through an Actuator
type Scheduler struct {
	program   Program
	act       Actuator
	clock     Clock
	log       *zap.Logger
	running   bool
	cursor    int
	remaining time.Duration
	last      time.Time
	loops     uint64
}

// NewScheduler creates a stopped scheduler for program
func NewScheduler(program Program, act Actuator, opts ...Option) *Scheduler {
	s := &Scheduler{
		program: program,
		act:     act,
		clock:   systemClock{},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start runs the program from its first action and applies that action
// immediately.
func (s *Scheduler) Start() {
	if len(s.program.Actions) == 0 {
		return
	}
	s.running = true
	s.cursor = 0
	s.last = s.clock.Now()
	s.load()
	s.log.Debug("autorun started", zap.Int("actions", len(s.program.Actions)), zap.Bool("looping", s.program.Looping))
	s.apply()
}

// Stop halts the program. The cursor is left where it was.
func (s *Scheduler) Stop() {
	if s.running {
		s.log.Debug("autorun stopped", zap.Int("action", s.cursor))
	}
	s.running = false
}

// Restart resets the cursor and starts the program again
func (s *Scheduler) Restart() {
	s.cursor = 0
	s.Start()
}

// Advance is called once per device tick. It re-applies the current action
// so it holds continuously, then counts down its duration.
func (s *Scheduler) Advance() {
	if !s.running {
		return
	}
	now := s.clock.Now()
	elapsed := now.Sub(s.last)
	s.last = now
	if elapsed < 0 {
		elapsed = 0
	}

	s.apply()

	if s.remaining == Infinite {
		return
	}
	if elapsed >= s.remaining {
		s.remaining = 0
	} else {
		s.remaining -= elapsed
	}
	if s.remaining == 0 {
		s.NextAction()
	}
}

// NextAction moves the cursor to the following action, wrapping or stopping
// at the end of the program.
func (s *Scheduler) NextAction() {
	if !s.running {
		return
	}
	s.cursor++
	if s.cursor >= len(s.program.Actions) {
		if !s.program.Looping {
			s.cursor = len(s.program.Actions) - 1
			s.Stop()
			return
		}
		s.cursor = 0
		s.loops++
	}
	s.load()
	s.log.Debug("autorun action",
		zap.Int("action", s.cursor),
		zap.Stringer("type", s.program.Actions[s.cursor].Type),
		zap.Duration("duration", s.program.Actions[s.cursor].Duration))
}

func (s *Scheduler) load() {
	s.remaining = s.program.Actions[s.cursor].Duration
}

func (s *Scheduler) apply() {
	a := &s.program.Actions[s.cursor]
	switch a.Type {
	case ActionMove:
		s.act.Move(wire.Direction(a.Args[0]), a.Args[1])
	case ActionStop:
		s.act.Stop()
	case ActionLights:
		s.act.SetLight(wire.Light(a.Args[0]), a.Args[1])
	case ActionBuzzer:
		s.act.SetBuzzer(a.Args[0])
	}
}

// Running reports whether the program is running
func (s *Scheduler) Running() bool { return s.running }

// Current returns the cursor
func (s *Scheduler) Current() int { return s.cursor }

// Remaining returns the time left on the current action
func (s *Scheduler) Remaining() time.Duration { return s.remaining }

// Loops returns how many times a looping program has wrapped
func (s *Scheduler) Loops() uint64 { return s.loops }

// Program returns the installed program
func (s *Scheduler) Program() Program { return s.program }
