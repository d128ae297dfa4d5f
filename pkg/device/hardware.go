// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/autorun"
	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// Hardware is the actuator and sensor surface of a tank.
// Implementations must not block: they run on the device loop.
type Hardware interface {
	autorun.Actuator
	PrintText(text string)
	SensorState() wire.SensorState
	// RotateHead points the distance sensor; 90 is straight ahead
	RotateHead(rotation uint8)
	Reset()
}

// EngineState is the last configuration applied to the tracks
type EngineState struct {
	Direction wire.Direction
	Speed     uint8
}

// Simulator is an in-memory Hardware used by `tanklink device` and tests.
// It is safe to inspect from other goroutines while a Server drives it.
type Simulator struct {
	mu     sync.Mutex
	log    *zap.Logger
	engine EngineState
	lights map[wire.Light]uint8
	buzzer uint8
	head   uint8
	text   string
	resets int
	moves  int
	adc    uint16
	wallMM float32
	left   bool
	right  bool
	rear   bool
}

// NewSimulator creates a simulated tank at rest, head centered, with a wall
// one meter ahead.
func NewSimulator(log *zap.Logger) *Simulator {
	return &Simulator{
		log:    observability.OrNop(log),
		engine: EngineState{Direction: wire.DirForward},
		lights: make(map[wire.Light]uint8),
		head:   90,
		adc:    372, // about 20°C
		wallMM: 1000,
	}
}

// Move implements autorun.Actuator. DirCurrent keeps the previous direction.
func (s *Simulator) Move(dir wire.Direction, speed uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != wire.DirCurrent {
		s.engine.Direction = dir
	}
	s.engine.Speed = speed
	s.moves++
}

// Stop implements autorun.Actuator
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Speed = 0
}

// SetLight implements autorun.Actuator
func (s *Simulator) SetLight(light wire.Light, level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights[light] = level
}

// SetBuzzer implements autorun.Actuator
func (s *Simulator) SetBuzzer(level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buzzer = level
}

// PrintText shows text on the simulated display
func (s *Simulator) PrintText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	s.log.Info("display", zap.String("text", text))
}

// RotateHead points the distance sensor
func (s *Simulator) RotateHead(rotation uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rotation > 180 {
		rotation = 180
	}
	s.head = rotation
}

// SensorState samples the simulated sensors
func (s *Simulator) SensorState() wire.SensorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wire.SensorState{
		HeadDistanceMM: s.headDistance(),
		TemperatureC:   wire.ThermometerCelsius(s.adc),
		Left:           flag(s.left),
		Right:          flag(s.right),
		Rear:           flag(s.rear),
	}
}

// headDistance models a flat wall ahead: the echo path grows as the head
// turns away from it, capped at the sensor range.
func (s *Simulator) headDistance() float32 {
	off := int(s.head) - 90
	if off < 0 {
		off = -off
	}
	d := s.wallMM * (1 + float32(off)/45)
	if d > wire.MaxDistanceMM {
		d = wire.MaxDistanceMM
	}
	return d
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Reset returns every actuator to its power-on state
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = EngineState{Direction: wire.DirForward}
	s.lights = make(map[wire.Light]uint8)
	s.buzzer = 0
	s.head = 90
	s.text = ""
	s.resets++
}

// SetEnvironment places obstacles around the simulated tank
func (s *Simulator) SetEnvironment(wallMM float32, left, right, rear bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallMM = wallMM
	s.left, s.right, s.rear = left, right, rear
}

// SetThermometer sets the raw 10-bit thermometer reading
func (s *Simulator) SetThermometer(adc uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adc = adc & 0x3FF
}

// Engine returns the current engine configuration
func (s *Simulator) Engine() EngineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Light returns the level of one light
func (s *Simulator) Light(l wire.Light) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lights[l]
}

// Buzzer returns the buzzer level
func (s *Simulator) Buzzer() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buzzer
}

// Head returns the head rotation
func (s *Simulator) Head() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Text returns the displayed text
func (s *Simulator) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Resets returns how many times the tank was reset
func (s *Simulator) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Moves returns how many move actuations were applied
func (s *Simulator) Moves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves
}
