// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"net"
	"sync"

	"github.com/ziutektech/tanklink/pkg/wire"
)

// Loopback answers every command written to it with a SUCCESS result whose
// payload is the command's own wire encoding. It lets the console and the
// receive pipeline run without a tank.
type Loopback struct {
	mu     sync.Mutex
	cond   *sync.Cond
	codec  wire.Codec
	in     bytes.Buffer // partial command bytes
	out    bytes.Buffer // encoded results awaiting Read
	closed bool
}

// NewLoopback creates an open loopback connection
func NewLoopback() *Loopback {
	l := &Loopback{codec: wire.DeviceCodec()}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Write accepts command bytes; complete commands are answered immediately
func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, net.ErrClosed
	}
	l.in.Write(p)
	for l.in.Len() >= wire.CommandHeaderSize {
		frame := l.in.Bytes()
		n := wire.CommandHeaderSize + int(frame[9])
		if l.in.Len() < n {
			break
		}
		raw := make([]byte, n)
		copy(raw, frame[:n])
		l.in.Next(n)

		h, _ := l.codec.DecodeCommandHeader(raw)
		res := wire.Result{Status: wire.StatusSuccess, Opcode: h.Opcode, ID: h.ID, Payload: raw}
		l.out.Write(l.codec.EncodeResult(res))
	}
	l.cond.Broadcast()
	return len(p), nil
}

// Read blocks until result bytes are available or the loopback is closed
func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.out.Len() == 0 && !l.closed {
		l.cond.Wait()
	}
	if l.out.Len() == 0 {
		return 0, net.ErrClosed
	}
	return l.out.Read(p)
}

// Close unblocks pending reads
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("loopback already closed")
	}
	l.closed = true
	l.cond.Broadcast()
	return nil
}
