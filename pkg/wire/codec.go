// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ziutektech/tanklink/pkg/byteswap"
)

// Codec converts commands and results to and from their wire layout.
//
// Multi-byte fields are written in the tank's native byte order. The host
// additionally swaps the correlation id on its way out and back in, which is
// what the firmware expects; the tank side leaves SwapID unset and simply
// echoes the id it decoded.
type Codec struct {
	Order      binary.ByteOrder
	SwapID     bool
	MaxPayload uint64
}

// HostCodec returns the codec used by the controlling host
func HostCodec() Codec {
	return Codec{Order: binary.LittleEndian, SwapID: true, MaxPayload: DefaultMaxPayload}
}

// DeviceCodec returns the codec used by the tank side
func DeviceCodec() Codec {
	return Codec{Order: binary.LittleEndian, MaxPayload: DefaultMaxPayload}
}

func (c Codec) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.LittleEndian
	}
	return c.Order
}

func (c Codec) maxPayload() uint64 {
	if c.MaxPayload == 0 {
		return DefaultMaxPayload
	}
	return c.MaxPayload
}

// wireID maps an id to and from its on-wire value (the swap is an involution)
func (c Codec) wireID(id uint64) uint64 {
	if c.SwapID {
		return byteswap.Uint64(id)
	}
	return id
}

// EncodeCommandHeader serializes a command header
func (c Codec) EncodeCommandHeader(h CommandHeader) []byte {
	buf := make([]byte, CommandHeaderSize)
	buf[0] = uint8(h.Opcode)
	c.order().PutUint64(buf[1:9], c.wireID(h.ID))
	buf[9] = h.ArgCount
	return buf
}

// DecodeCommandHeader parses the first CommandHeaderSize bytes of data
func (c Codec) DecodeCommandHeader(data []byte) (CommandHeader, error) {
	if len(data) < CommandHeaderSize {
		return CommandHeader{}, fmt.Errorf("%w: %d bytes (need %d)", ErrShortFrame, len(data), CommandHeaderSize)
	}
	return CommandHeader{
		Opcode:   Opcode(data[0]),
		ID:       c.wireID(c.order().Uint64(data[1:9])),
		ArgCount: data[9],
	}, nil
}

// EncodeCommand serializes a complete command (header followed by arguments)
func (c Codec) EncodeCommand(cmd Command) ([]byte, error) {
	if cmd.Count > MaxArgs {
		return nil, ErrTooManyArgs
	}
	buf := c.EncodeCommandHeader(cmd.Header())
	return append(buf, cmd.Arguments()...), nil
}

// DecodeCommand parses a complete command. data must hold exactly the header
// and the declared number of argument bytes.
func (c Codec) DecodeCommand(data []byte) (Command, error) {
	h, err := c.DecodeCommandHeader(data)
	if err != nil {
		return Command{}, err
	}
	if h.ArgCount > MaxArgs {
		return Command{}, fmt.Errorf("%w: %d", ErrTooManyArgs, h.ArgCount)
	}
	if len(data)-CommandHeaderSize != int(h.ArgCount) {
		return Command{}, fmt.Errorf("%w: declared %d, got %d", ErrArgsMismatch, h.ArgCount, len(data)-CommandHeaderSize)
	}
	cmd := Command{Opcode: h.Opcode, ID: h.ID, Count: h.ArgCount}
	copy(cmd.Args[:], data[CommandHeaderSize:])
	return cmd, nil
}

// EncodeResultHeader serializes a result header
func (c Codec) EncodeResultHeader(h ResultHeader) []byte {
	buf := make([]byte, ResultHeaderSize)
	buf[0] = uint8(h.Status)
	buf[1] = uint8(h.Opcode)
	c.order().PutUint64(buf[2:10], c.wireID(h.ID))
	c.order().PutUint64(buf[10:18], h.PayloadLength)
	return buf
}

// DecodeResultHeader parses the first ResultHeaderSize bytes of data.
// A payload length above MaxPayload is rejected with ErrPayloadTooLarge; the
// parsed header is still returned so the caller can report it.
func (c Codec) DecodeResultHeader(data []byte) (ResultHeader, error) {
	if len(data) < ResultHeaderSize {
		return ResultHeader{}, fmt.Errorf("%w: %d bytes (need %d)", ErrShortFrame, len(data), ResultHeaderSize)
	}
	h := ResultHeader{
		Status:        Status(data[0]),
		Opcode:        Opcode(data[1]),
		ID:            c.wireID(c.order().Uint64(data[2:10])),
		PayloadLength: c.order().Uint64(data[10:18]),
	}
	if h.PayloadLength > c.maxPayload() {
		return h, fmt.Errorf("%w: %d (max %d)", ErrPayloadTooLarge, h.PayloadLength, c.maxPayload())
	}
	return h, nil
}

// EncodeResult serializes a complete result (header followed by payload)
func (c Codec) EncodeResult(r Result) []byte {
	buf := c.EncodeResultHeader(r.Header())
	return append(buf, r.Payload...)
}

// DecodeResult parses a complete result
func (c Codec) DecodeResult(data []byte) (Result, error) {
	h, err := c.DecodeResultHeader(data)
	if err != nil {
		return Result{}, err
	}
	body := data[ResultHeaderSize:]
	if uint64(len(body)) != h.PayloadLength {
		return Result{}, fmt.Errorf("%w: declared %d, got %d", ErrPayloadMismatch, h.PayloadLength, len(body))
	}
	r := Result{Status: h.Status, Opcode: h.Opcode, ID: h.ID}
	if h.PayloadLength > 0 {
		r.Payload = make([]byte, h.PayloadLength)
		copy(r.Payload, body)
	}
	return r, nil
}

// ReadCommandHeader performs one exact read of a command header
func (c Codec) ReadCommandHeader(r io.Reader) (CommandHeader, error) {
	buf := make([]byte, CommandHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return CommandHeader{}, err
	}
	return c.DecodeCommandHeader(buf)
}

// ReadCommand reads one command from r.
//
// When the header declares more than MaxArgs arguments the stray bytes are
// consumed to keep the stream aligned, and the returned command carries the
// opcode and id (with no arguments) alongside ErrTooManyArgs so the caller
// can still answer it.
func (c Codec) ReadCommand(r io.Reader) (Command, error) {
	h, err := c.ReadCommandHeader(r)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Opcode: h.Opcode, ID: h.ID}
	if h.ArgCount > MaxArgs {
		if _, err := io.CopyN(io.Discard, r, int64(h.ArgCount)); err != nil {
			return cmd, err
		}
		return cmd, fmt.Errorf("%w: %d", ErrTooManyArgs, h.ArgCount)
	}
	if _, err := io.ReadFull(r, cmd.Args[:h.ArgCount]); err != nil {
		return cmd, err
	}
	cmd.Count = h.ArgCount
	return cmd, nil
}

// ReadResult reads one result from r: an exact header read followed, if the
// payload length is non-zero, by an exact read into a fresh buffer. Partial
// frames are discarded.
func (c Codec) ReadResult(r io.Reader) (Result, error) {
	buf := make([]byte, ResultHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Result{}, fmt.Errorf("result header: %w", err)
	}
	h, err := c.DecodeResultHeader(buf)
	if err != nil {
		return Result{}, err
	}
	res := Result{Status: h.Status, Opcode: h.Opcode, ID: h.ID}
	if h.PayloadLength > 0 {
		res.Payload = make([]byte, h.PayloadLength)
		if _, err := io.ReadFull(r, res.Payload); err != nil {
			return Result{}, fmt.Errorf("result payload: %w", err)
		}
	}
	return res, nil
}
