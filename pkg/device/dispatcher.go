// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device implements the tank side of the link: command dispatch,
// the autorun program and the single-goroutine device loop.
package device

import (
	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/autorun"
	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// State is the dispatcher state
type State uint8

const (
	// Idle accepts every command
	Idle State = iota
	// Executing means an autorun program owns the actuators
	Executing
)

func (s State) String() string {
	if s == Executing {
		return "EXECUTING"
	}
	return "IDLE"
}

// Handler services one admitted command. The returned payload is sent back
// unchanged in the result.
type Handler func(cmd wire.Command) (wire.Status, []byte)

// Dispatcher validates commands, applies the state policy and invokes the
// handler bound to each opcode. Every command yields exactly one result that
// mirrors its opcode and id.
type Dispatcher struct {
	hw       Hardware
	sched    *autorun.Scheduler
	codec    wire.Codec
	log      *zap.Logger
	handlers [wire.OpAutorun + 1]Handler
	reset    bool
}

// NewDispatcher creates a dispatcher with the standard handlers bound.
// A nil scheduler leaves AUTORUN unbound.
func NewDispatcher(hw Hardware, sched *autorun.Scheduler, codec wire.Codec, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{hw: hw, sched: sched, codec: codec, log: observability.OrNop(log)}
	d.Bind(wire.OpMove, d.handleMove)
	d.Bind(wire.OpStop, d.handleStop)
	d.Bind(wire.OpPrintText, d.handlePrintText)
	d.Bind(wire.OpGetSensorState, d.handleSensorState)
	d.Bind(wire.OpMoveHeadSensor, d.handleHead)
	d.Bind(wire.OpConfigureLight, d.handleLight)
	d.Bind(wire.OpConfigureBuzz, d.handleBuzzer)
	d.Bind(wire.OpReset, d.handleReset)
	if sched != nil {
		d.Bind(wire.OpAutorun, d.handleAutorun)
	}
	return d
}

// Bind sets the handler for op; nil unbinds it
func (d *Dispatcher) Bind(op wire.Opcode, h Handler) {
	if op.Valid() {
		d.handlers[op] = h
	}
}

// State returns Executing while the autorun program is running
func (d *Dispatcher) State() State {
	if d.sched != nil && d.sched.Running() {
		return Executing
	}
	return Idle
}

// Dispatch services one command
func (d *Dispatcher) Dispatch(cmd wire.Command) wire.Result {
	status, payload := d.dispatch(cmd)
	if status != wire.StatusSuccess {
		d.log.Debug("command rejected",
			zap.Stringer("opcode", cmd.Opcode),
			zap.Uint64("id", cmd.ID),
			zap.Stringer("status", status),
			zap.Stringer("state", d.State()))
	}
	return wire.NewResult(status, cmd, payload)
}

func (d *Dispatcher) dispatch(cmd wire.Command) (wire.Status, []byte) {
	lo, hi, ok := wire.ArgRange(cmd.Opcode)
	if !ok {
		return wire.StatusInvalidOpcode, nil
	}
	if n := int(cmd.Count); n < lo || n > hi {
		return wire.StatusInvalidArgsCount, nil
	}
	h := d.handlers[cmd.Opcode]
	if h == nil {
		return wire.StatusNoHandler, nil
	}
	if status := d.admit(cmd); status != wire.StatusSuccess {
		return status, nil
	}
	return h(cmd)
}

// admit applies the state policy. Actuation commands are refused while an
// autorun program owns the actuators; stopping, querying and resetting are
// always allowed.
func (d *Dispatcher) admit(cmd wire.Command) wire.Status {
	state := d.State()
	switch cmd.Opcode {
	case wire.OpMove, wire.OpMoveHeadSensor, wire.OpConfigureLight, wire.OpConfigureBuzz:
		if state == Executing {
			return wire.StatusBusy
		}
	case wire.OpAutorun:
		if cmd.Args[0] == 0 && state == Idle {
			return wire.StatusInvalidState
		}
	}
	return wire.StatusSuccess
}

// TakeReset reports whether a RESET was serviced since the last call.
// The server drops the connection once the RESET result is written.
func (d *Dispatcher) TakeReset() bool {
	r := d.reset
	d.reset = false
	return r
}

func (d *Dispatcher) handleMove(cmd wire.Command) (wire.Status, []byte) {
	dir := wire.Direction(cmd.Args[0])
	if !dir.Valid() {
		return wire.StatusInvalidState, nil
	}
	d.hw.Move(dir, cmd.Args[1])
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleStop(wire.Command) (wire.Status, []byte) {
	if d.sched != nil {
		d.sched.Stop()
	}
	d.hw.Stop()
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handlePrintText(cmd wire.Command) (wire.Status, []byte) {
	d.hw.PrintText(string(cmd.Arguments()))
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleSensorState(wire.Command) (wire.Status, []byte) {
	return wire.StatusSuccess, d.codec.EncodeSensorState(d.hw.SensorState())
}

func (d *Dispatcher) handleHead(cmd wire.Command) (wire.Status, []byte) {
	if cmd.Args[0] > 180 {
		return wire.StatusInvalidState, nil
	}
	d.hw.RotateHead(cmd.Args[0])
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleLight(cmd wire.Command) (wire.Status, []byte) {
	d.hw.SetLight(wire.Light(cmd.Args[0]), cmd.Args[1])
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleBuzzer(cmd wire.Command) (wire.Status, []byte) {
	d.hw.SetBuzzer(cmd.Args[0])
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleReset(wire.Command) (wire.Status, []byte) {
	if d.sched != nil {
		d.sched.Stop()
	}
	d.hw.Reset()
	d.reset = true
	d.log.Info("reset requested")
	return wire.StatusSuccess, nil
}

func (d *Dispatcher) handleAutorun(cmd wire.Command) (wire.Status, []byte) {
	if cmd.Args[0] != 0 {
		d.sched.Restart()
		if !d.sched.Running() {
			return wire.StatusInvalidState, nil
		}
		d.log.Info("autorun enabled")
		return wire.StatusSuccess, nil
	}
	d.sched.Stop()
	d.hw.Stop()
	d.log.Info("autorun disabled")
	return wire.StatusSuccess, nil
}
