// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wire implements the tank command/result protocol.
//
// A host sends fixed-layout commands (opcode, correlation id, up to 16
// argument bytes) and the tank answers each one with a result that echoes the
// opcode and id, followed by an optional payload. There is no framing marker
// and no checksum: a frame is delimited only by its header sizes, so a lost
// byte desynchronizes the stream until the link is re-established.
//
// Command: [opcode:u8][id:u64][argCount:u8][args:u8*argCount]
// Result:  [status:u8][opcode:u8][id:u64][payloadLength:u64][payload]
package wire

// Frame sizes
const (
	MaxArgs           = 16
	CommandHeaderSize = 1 + 8 + 1
	ResultHeaderSize  = 1 + 1 + 8 + 8
	SensorStateSize   = 4 + 4 + 1 + 1 + 1

	// DefaultMaxPayload bounds result payload allocation on the host
	DefaultMaxPayload = 512
)

// Opcode identifies the intent of a command
type Opcode uint8

// Opcode values, shared by both peers
const (
	OpMove           Opcode = 1
	OpStop           Opcode = 2
	OpPrintText      Opcode = 3
	OpGetSensorState Opcode = 4
	OpMoveHeadSensor Opcode = 5
	OpConfigureLight Opcode = 6
	OpConfigureBuzz  Opcode = 7
	OpReset          Opcode = 8
	OpAutorun        Opcode = 9
)

// Valid reports whether op belongs to the closed opcode set
func (op Opcode) Valid() bool {
	return op >= OpMove && op <= OpAutorun
}

// String returns the protocol name of the opcode
func (op Opcode) String() string {
	return FormatOpcode(op)
}

// ArgRange returns the inclusive argument count range accepted for op.
// ok is false for opcodes outside the closed set.
func ArgRange(op Opcode) (lo, hi int, ok bool) {
	switch op {
	case OpMove:
		return 2, 2, true
	case OpStop, OpGetSensorState, OpReset:
		return 0, 0, true
	case OpPrintText:
		return 0, MaxArgs, true
	case OpMoveHeadSensor, OpConfigureBuzz, OpAutorun:
		return 1, 1, true
	case OpConfigureLight:
		return 2, 2, true
	}
	return 0, 0, false
}

// Status is the outcome reported in a result
type Status uint8

// Status values
const (
	StatusSuccess          Status = 0
	StatusInvalidOpcode    Status = 1
	StatusInvalidArgsCount Status = 2
	StatusInvalidState     Status = 3
	StatusBusy             Status = 4 // reported as OPERATING by older firmware
	StatusNoHandler        Status = 5
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s <= StatusNoHandler
}

// String returns the protocol name of the status
func (s Status) String() string {
	return FormatStatus(s)
}

// Direction is the engine direction argument of MOVE
type Direction uint8

// Direction values. The two low bits drive the left and right track
// direction pins.
const (
	DirBackward Direction = 0b00
	DirLeft     Direction = 0b01
	DirRight    Direction = 0b10
	DirForward  Direction = 0b11
	DirCurrent  Direction = 0xFF // keep the current direction
)

// Valid reports whether d is a direction the engine understands
func (d Direction) Valid() bool {
	return d <= DirForward || d == DirCurrent
}

// Light identifies a light output of CONFIGURE_LIGHT
type Light uint8

// Light values (firmware pin numbers)
const (
	LightFront Light = 6
	LightRear  Light = 5
	LightLeft  Light = 4
	LightRight Light = 12
)

// Argument levels used by on/off style commands
const (
	LevelOff = 0
	LevelOn  = 255
)
