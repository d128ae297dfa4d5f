// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package autorun

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziutektech/tanklink/pkg/config"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// Infinite marks an action that holds until the program is stopped or
// restarted from outside.
const Infinite time.Duration = -1

// ActionType selects the effect an action applies on every tick
type ActionType uint8

const (
	ActionMove ActionType = iota
	ActionStop
	ActionLights
	ActionBuzzer
)

// String returns the configuration name of the action type
func (t ActionType) String() string {
	switch t {
	case ActionMove:
		return "move"
	case ActionStop:
		return "stop"
	case ActionLights:
		return "lights"
	case ActionBuzzer:
		return "buzzer"
	}
	return fmt.Sprintf("action(%d)", uint8(t))
}

// arity is the number of argument bytes an action reads
func (t ActionType) arity() int {
	switch t {
	case ActionMove, ActionLights:
		return 2
	case ActionBuzzer:
		return 1
	}
	return 0
}

// Action is one timed step of a program
type Action struct {
	Type     ActionType
	Duration time.Duration // Infinite holds forever, 0 advances on the next tick
	Args     [wire.MaxArgs]byte
}

// Move returns an action driving the engine for d
func Move(dir wire.Direction, speed uint8, d time.Duration) Action {
	return Action{Type: ActionMove, Duration: d, Args: [wire.MaxArgs]byte{byte(dir), speed}}
}

// Stop returns an action holding the engine stopped for d
func Stop(d time.Duration) Action {
	return Action{Type: ActionStop, Duration: d}
}

// Lights returns an action setting one light for d
func Lights(light wire.Light, level uint8, d time.Duration) Action {
	return Action{Type: ActionLights, Duration: d, Args: [wire.MaxArgs]byte{byte(light), level}}
}

// Buzzer returns an action setting the buzzer level for d
func Buzzer(level uint8, d time.Duration) Action {
	return Action{Type: ActionBuzzer, Duration: d, Args: [wire.MaxArgs]byte{level}}
}

// Program is an ordered, optionally looping sequence of actions
type Program struct {
	Actions []Action
	Looping bool
}

// ErrEmptyProgram is returned when a program has no actions
var ErrEmptyProgram = errors.New("autorun: program has no actions")

// ParseProgram builds a Program from its configuration form
func ParseProgram(c config.AutorunConfig) (Program, error) {
	if len(c.Actions) == 0 {
		return Program{}, ErrEmptyProgram
	}
	p := Program{Looping: c.Looping, Actions: make([]Action, 0, len(c.Actions))}
	for i, ac := range c.Actions {
		a, err := parseAction(ac)
		if err != nil {
			return Program{}, fmt.Errorf("action %d: %w", i, err)
		}
		p.Actions = append(p.Actions, a)
	}
	return p, nil
}

func parseAction(ac config.ActionConfig) (Action, error) {
	var a Action
	switch strings.ToLower(strings.TrimSpace(ac.Type)) {
	case "move":
		a.Type = ActionMove
	case "stop":
		a.Type = ActionStop
	case "lights", "light":
		a.Type = ActionLights
	case "buzzer":
		a.Type = ActionBuzzer
	default:
		return a, fmt.Errorf("unknown action type %q", ac.Type)
	}

	d, err := ParseDuration(ac.Duration)
	if err != nil {
		return a, err
	}
	a.Duration = d

	if len(ac.Args) < a.Type.arity() {
		return a, fmt.Errorf("%s needs %d arguments, got %d", a.Type, a.Type.arity(), len(ac.Args))
	}
	if len(ac.Args) > wire.MaxArgs {
		return a, wire.ErrTooManyArgs
	}
	for i, v := range ac.Args {
		if v < 0 || v > 255 {
			return a, fmt.Errorf("argument %d out of byte range: %d", i, v)
		}
		a.Args[i] = byte(v)
	}
	if a.Type == ActionMove && !wire.Direction(a.Args[0]).Valid() {
		return a, fmt.Errorf("invalid direction %d", a.Args[0])
	}
	return a, nil
}

// ParseDuration parses a Go duration string or "infinite"
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "infinite", "inf", "forever":
		return Infinite, nil
	case "", "0":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
