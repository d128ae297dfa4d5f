// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import "errors"

// Protocol errors
var (
	ErrTooManyArgs     = errors.New("wire: argument count exceeds 16")
	ErrShortFrame      = errors.New("wire: frame shorter than header")
	ErrArgsMismatch    = errors.New("wire: argument bytes do not match declared count")
	ErrPayloadTooLarge = errors.New("wire: payload length exceeds limit")
	ErrPayloadMismatch = errors.New("wire: payload bytes do not match declared length")
)

// Command is a request sent from the host to the tank
type Command struct {
	Opcode Opcode
	ID     uint64
	Count  uint8
	Args   [MaxArgs]byte
}

// NewCommand creates a command with the given arguments and a zero id.
// The transmit path assigns the id.
func NewCommand(op Opcode, args ...byte) (Command, error) {
	if len(args) > MaxArgs {
		return Command{}, ErrTooManyArgs
	}
	c := Command{Opcode: op, Count: uint8(len(args))}
	copy(c.Args[:], args)
	return c, nil
}

// Arguments returns the used part of the argument array
func (c Command) Arguments() []byte {
	n := int(c.Count)
	if n > MaxArgs {
		n = MaxArgs
	}
	return c.Args[:n]
}

// Header returns the fixed-size prefix of the command
func (c Command) Header() CommandHeader {
	return CommandHeader{Opcode: c.Opcode, ID: c.ID, ArgCount: c.Count}
}

// CommandHeader is the fixed-size prefix of a serialized command
type CommandHeader struct {
	Opcode   Opcode
	ID       uint64
	ArgCount uint8
}

// Result is the tank's answer to a command
type Result struct {
	Status  Status
	Opcode  Opcode // opcode of the serviced command
	ID      uint64 // correlation id of the serviced command
	Payload []byte
}

// NewResult creates a result answering cmd
func NewResult(status Status, cmd Command, payload []byte) Result {
	return Result{Status: status, Opcode: cmd.Opcode, ID: cmd.ID, Payload: payload}
}

// Header returns the fixed-size prefix of the result
func (r Result) Header() ResultHeader {
	return ResultHeader{
		Status:        r.Status,
		Opcode:        r.Opcode,
		ID:            r.ID,
		PayloadLength: uint64(len(r.Payload)),
	}
}

// ResultHeader is the fixed-size prefix of a serialized result
type ResultHeader struct {
	Status        Status
	Opcode        Opcode
	ID            uint64
	PayloadLength uint64
}
