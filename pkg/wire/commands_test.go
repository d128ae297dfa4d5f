// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		wantOp   Opcode
		wantArgs []byte
	}{
		{"move forward full speed", NewMoveCommand(DirForward, 255), OpMove, []byte{3, 255}},
		{"move keep direction", NewMoveCommand(DirCurrent, 0), OpMove, []byte{0xFF, 0}},
		{"stop", NewStopCommand(), OpStop, []byte{}},
		{"print text", NewPrintTextCommand("hi"), OpPrintText, []byte("hi")},
		{"print text truncated", NewPrintTextCommand("0123456789abcdefXYZ"), OpPrintText, []byte("0123456789abcdef")},
		{"sensor state", NewSensorStateRequest(), OpGetSensorState, []byte{}},
		{"head centered", NewHeadSensorCommand(0), OpMoveHeadSensor, []byte{90}},
		{"head left clamped", NewHeadSensorCommand(120), OpMoveHeadSensor, []byte{180}},
		{"head right clamped", NewHeadSensorCommand(-150), OpMoveHeadSensor, []byte{0}},
		{"front light on", NewLightCommand(LightFront, LevelOn), OpConfigureLight, []byte{6, 255}},
		{"buzzer off", NewBuzzerCommand(LevelOff), OpConfigureBuzz, []byte{0}},
		{"reset", NewResetCommand(), OpReset, []byte{}},
		{"autorun on", NewAutorunCommand(true), OpAutorun, []byte{1}},
		{"autorun off", NewAutorunCommand(false), OpAutorun, []byte{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd.Opcode != tt.wantOp {
				t.Errorf("Opcode = %s, want %s", tt.cmd.Opcode, tt.wantOp)
			}
			if tt.cmd.ID != 0 {
				t.Errorf("ID = %d, want 0", tt.cmd.ID)
			}
			if !bytes.Equal(tt.cmd.Arguments(), tt.wantArgs) {
				t.Errorf("Arguments() = % X, want % X", tt.cmd.Arguments(), tt.wantArgs)
			}
			lo, hi, ok := ArgRange(tt.cmd.Opcode)
			if !ok || int(tt.cmd.Count) < lo || int(tt.cmd.Count) > hi {
				t.Errorf("Count = %d outside arity %d..%d", tt.cmd.Count, lo, hi)
			}
		})
	}
}

func TestNewCommandLimits(t *testing.T) {
	if _, err := NewCommand(OpPrintText, make([]byte, MaxArgs)...); err != nil {
		t.Errorf("NewCommand(16 args) error = %v", err)
	}
	if _, err := NewCommand(OpPrintText, make([]byte, MaxArgs+1)...); !errors.Is(err, ErrTooManyArgs) {
		t.Errorf("NewCommand(17 args) error = %v, want ErrTooManyArgs", err)
	}
}

func TestOpcodeAndStatusNames(t *testing.T) {
	for op := Opcode(0); op < 12; op++ {
		name := FormatOpcode(op)
		if op.Valid() == (name == "UNKNOWN") {
			t.Errorf("opcode %d: Valid()=%v but name %q", op, op.Valid(), name)
		}
		_, _, ok := ArgRange(op)
		if ok != op.Valid() {
			t.Errorf("opcode %d: ArgRange ok=%v, Valid()=%v", op, ok, op.Valid())
		}
	}
	if StatusBusy.String() != "BUSY" || StatusNoHandler.String() != "NO_HANDLER" {
		t.Errorf("unexpected status names %s %s", StatusBusy, StatusNoHandler)
	}
	if Status(6).Valid() || Status(6).String() != "UNKNOWN" {
		t.Errorf("status 6 should be unknown")
	}
}

func TestFormatCommand(t *testing.T) {
	cmd := NewMoveCommand(DirForward, 200)
	cmd.ID = 0xAB
	got := FormatCommand(cmd)
	want := "MOVE (0x01) id=00000000000000AB args=2 [FORWARD speed=200]"
	if got != want {
		t.Errorf("FormatCommand() = %q, want %q", got, want)
	}
}
