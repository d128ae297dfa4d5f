// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records received results to a file and reads them back.
//
// A capture is a CBOR sequence: one Header followed by one Record per
// result, each a map with small integer keys.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/ziutektech/tanklink/pkg/link"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// Version is the capture format version written in the header
const Version = 1

// ErrVersion is returned for captures written by an incompatible version
var ErrVersion = errors.New("capture: unsupported version")

// Header opens a capture
type Header struct {
	Version  uint      `cbor:"1,keyasint"`
	Session  uuid.UUID `cbor:"2,keyasint"`
	Started  time.Time `cbor:"3,keyasint"`
	Endpoint string    `cbor:"4,keyasint,omitempty"`
	SwapID   bool      `cbor:"5,keyasint"`
}

// Record is one received result
type Record struct {
	Sequence uint64        `cbor:"1,keyasint"`
	At       time.Time     `cbor:"2,keyasint"`
	Status   wire.Status   `cbor:"3,keyasint"`
	Opcode   wire.Opcode   `cbor:"4,keyasint"`
	ID       uint64        `cbor:"5,keyasint"`
	Payload  []byte        `cbor:"6,keyasint,omitempty"`
	Latency  time.Duration `cbor:"7,keyasint,omitempty"`
	Args     []byte        `cbor:"8,keyasint,omitempty"` // arguments of the matched command
}

// Result returns the recorded result
func (r Record) Result() wire.Result {
	return wire.Result{Status: r.Status, Opcode: r.Opcode, ID: r.ID, Payload: r.Payload}
}

// FromDelivery converts a link delivery into a record
func FromDelivery(d link.Delivery) Record {
	rec := Record{
		Sequence: d.Sequence,
		At:       d.At,
		Status:   d.Result.Status,
		Opcode:   d.Result.Opcode,
		ID:       d.Result.ID,
		Payload:  d.Result.Payload,
	}
	if d.Matched {
		rec.Latency = d.Latency
		rec.Args = append([]byte(nil), d.Command.Arguments()...)
	}
	return rec
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Writer appends records to a capture
type Writer struct {
	enc    *cbor.Encoder
	header Header
	count  int
}

// NewWriter writes a header with a fresh session id to w
func NewWriter(w io.Writer, endpoint string, swapID bool) (*Writer, error) {
	h := Header{
		Version:  Version,
		Session:  uuid.New(),
		Started:  time.Now().UTC(),
		Endpoint: endpoint,
		SwapID:   swapID,
	}
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return &Writer{enc: enc, header: h}, nil
}

// Header returns the header written at the start of the capture
func (w *Writer) Header() Header { return w.header }

// Count returns the number of records written
func (w *Writer) Count() int { return w.count }

// Write appends one record
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	w.count++
	return nil
}

// Reader iterates over a capture
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the capture header
func NewReader(r io.Reader) (*Reader, error) {
	dec := decMode.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the capture header
func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF at the end of the capture
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	return rec, nil
}
