// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link is the host end of a tank connection. A Session owns the
// transport, writes commands and runs a background receiver that hands
// decoded results to the caller through a bounded ring.
package link

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/queue"
	"github.com/ziutektech/tanklink/pkg/transport"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// Session errors
var (
	ErrNotConnected = errors.New("link: not connected")
	ErrShortWrite   = errors.New("link: short write")
	ErrConnected    = errors.New("link: already connected")
)

// readBackoff is the pause after a failed read so a dead link does not spin
const readBackoff = 10 * time.Millisecond

// Delivery is a received result, paired with the command that caused it
// when the session still remembers sending it.
type Delivery struct {
	Result   wire.Result
	At       time.Time
	Command  wire.Command
	Matched  bool
	Latency  time.Duration
	Sequence uint64
}

// Options configures a Session
type Options struct {
	Codec         wire.Codec
	QueueCapacity int
	Logger        *zap.Logger
	// IDs supplies correlation ids; nil uses math/rand/v2
	IDs func() uint64
}

// Stats is a snapshot of the session counters
type Stats struct {
	Sent       uint64
	Received   uint64
	Dropped    uint64
	ReadErrors uint64
	Queued     int
	Latency    time.Duration // moving average round trip
	EncodeTime time.Duration // moving average command encode time
}

// Session is a host connection to one tank
type Session struct {
	dial  transport.Dialer
	codec wire.Codec
	log   *zap.Logger
	ids   func() uint64
	ring  *queue.Ring[Delivery]

	mu      sync.Mutex // guards conn
	writeMu sync.Mutex // keeps the two writes of a command together
	conn    transport.Conn
	running atomic.Bool
	wg      sync.WaitGroup

	sent       atomic.Uint64
	received   atomic.Uint64
	readErrors atomic.Uint64

	tracker *Tracker
	latency *Average
	encode  *Average
}

// NewSession creates a disconnected session that opens its transport with
// dial.
func NewSession(dial transport.Dialer, opts Options) *Session {
	codec := opts.Codec
	if codec.Order == nil {
		codec = wire.HostCodec()
	}
	ids := opts.IDs
	if ids == nil {
		ids = rand.Uint64
	}
	return &Session{
		dial:    dial,
		codec:   codec,
		log:     observability.OrNop(opts.Logger),
		ids:     ids,
		ring:    queue.NewRing[Delivery](opts.QueueCapacity),
		tracker: NewTracker(DefaultTrackerSize),
		latency: NewAverage(DefaultAverageWindow),
		encode:  NewAverage(DefaultAverageWindow),
	}
}

// Open dials the transport and starts the receiver
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return ErrConnected
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("open link: %w", err)
	}
	s.conn = conn
	s.running.Store(true)
	s.wg.Add(1)
	go s.receiveLoop(conn)
	s.log.Info("link open")
	return nil
}

// Connected reports whether the session has a transport
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close stops the receiver and closes the transport. Buffered results stay
// available to Poll.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.running.Store(false)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	// closing the transport unblocks the pending read
	err := conn.Close()
	s.wg.Wait()
	s.log.Info("link closed")
	return err
}

// Reconnect closes the current transport and opens a new one
func (s *Session) Reconnect(ctx context.Context) error {
	if err := s.Close(); err != nil {
		s.log.Debug("close before reconnect", zap.Error(err))
	}
	return s.Open(ctx)
}

func (s *Session) current() transport.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Send assigns a fresh correlation id to cmd and writes it. It does not
// wait for the result; the id is returned so the caller can match it.
func (s *Session) Send(cmd wire.Command) (uint64, error) {
	if cmd.Count > wire.MaxArgs {
		return 0, wire.ErrTooManyArgs
	}
	conn := s.current()
	if conn == nil {
		return 0, ErrNotConnected
	}

	start := time.Now()
	cmd.ID = s.ids()
	header := s.codec.EncodeCommandHeader(cmd.Header())
	args := cmd.Arguments()
	s.encode.Add(time.Since(start))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// recorded first, the result may arrive before Write returns
	s.tracker.Record(cmd, time.Now())
	if err := s.write(conn, "header", header); err != nil {
		s.tracker.Forget(cmd.Opcode, cmd.ID)
		return cmd.ID, err
	}
	if len(args) > 0 {
		if err := s.write(conn, "args", args); err != nil {
			s.tracker.Forget(cmd.Opcode, cmd.ID)
			return cmd.ID, err
		}
	}
	s.sent.Add(1)
	s.log.Debug("command sent", zap.Stringer("opcode", cmd.Opcode), zap.Uint64("id", cmd.ID))
	return cmd.ID, nil
}

// SendArgs builds a command from op and args and sends it
func (s *Session) SendArgs(op wire.Opcode, args ...byte) (uint64, error) {
	cmd, err := wire.NewCommand(op, args...)
	if err != nil {
		return 0, err
	}
	return s.Send(cmd)
}

func (s *Session) write(conn transport.Conn, stage string, p []byte) error {
	n, err := conn.Write(p)
	if err == nil && n != len(p) {
		err = fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(p))
	}
	if err != nil {
		s.log.Error("command write failed", zap.String("stage", stage), zap.Error(err))
		return fmt.Errorf("%s write: %w", stage, err)
	}
	return nil
}

// receiveLoop reads results until the session is closed
func (s *Session) receiveLoop(conn transport.Conn) {
	defer s.wg.Done()
	failing := false
	for s.running.Load() {
		res, err := s.codec.ReadResult(conn)
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.readErrors.Add(1)
			if !failing {
				s.log.Warn("result read failed", zap.Error(err))
				failing = true
			} else {
				s.log.Debug("result read failed", zap.Error(err))
			}
			time.Sleep(readBackoff)
			continue
		}
		failing = false
		seq := s.received.Add(1)
		d := Delivery{Result: res, At: time.Now(), Sequence: seq}
		if !s.ring.TryPush(d) {
			s.log.Debug("result dropped, queue full",
				zap.Stringer("opcode", res.Opcode),
				zap.Uint64("id", res.ID))
		}
	}
}

// Poll returns the oldest buffered result without blocking
func (s *Session) Poll() (wire.Result, bool) {
	d, ok := s.ring.TryPop()
	if !ok {
		return wire.Result{}, false
	}
	s.match(&d)
	return d.Result, true
}

// Drain hands every buffered result to fn, oldest first, and returns how
// many were delivered.
func (s *Session) Drain(fn func(Delivery)) int {
	n := 0
	for {
		d, ok := s.ring.TryPop()
		if !ok {
			return n
		}
		s.match(&d)
		fn(d)
		n++
	}
}

// Wait blocks until a result is buffered or ctx is done
func (s *Session) Wait(ctx context.Context) error {
	return s.ring.Wait(ctx)
}

func (s *Session) match(d *Delivery) {
	sent, ok := s.tracker.Take(d.Result.Opcode, d.Result.ID)
	if !ok {
		return
	}
	d.Command = sent.Command
	d.Matched = true
	d.Latency = d.At.Sub(sent.At)
	if d.Latency < 0 {
		d.Latency = 0
	}
	s.latency.Add(d.Latency)
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		Sent:       s.sent.Load(),
		Received:   s.received.Load(),
		Dropped:    s.ring.Dropped(),
		ReadErrors: s.readErrors.Load(),
		Queued:     s.ring.Len(),
		Latency:    s.latency.Value(),
		EncodeTime: s.encode.Value(),
	}
}

// Codec returns the codec used on this session
func (s *Session) Codec() wire.Codec { return s.codec }
