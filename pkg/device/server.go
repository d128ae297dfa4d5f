// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/autorun"
	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/transport"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// DefaultTick is the scheduler tick period
const DefaultTick = 10 * time.Millisecond

// Server is the device loop. Command dispatch, result writes and scheduler
// ticks all happen on the goroutine running Serve or Run; only the blocking
// reads of the current connection happen elsewhere.
type Server struct {
	disp  *Dispatcher
	sched *autorun.Scheduler
	codec wire.Codec
	tick  time.Duration
	log   *zap.Logger
}

// NewServer creates a device loop around a dispatcher and its scheduler.
// sched may be nil when no autorun program is installed.
func NewServer(disp *Dispatcher, sched *autorun.Scheduler, codec wire.Codec, tick time.Duration, log *zap.Logger) *Server {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Server{disp: disp, sched: sched, codec: codec, tick: tick, log: observability.OrNop(log)}
}

type inbound struct {
	cmd wire.Command
	err error
}

// session is the connection currently being served
type session struct {
	conn   io.ReadWriteCloser
	cmds   chan inbound
	cancel context.CancelFunc
}

// Serve runs the loop over a single connection. It returns nil when the peer
// disconnects or a RESET is serviced, and ctx.Err() on cancellation.
func (s *Server) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	conns := make(chan io.ReadWriteCloser, 1)
	conns <- conn
	return s.loop(ctx, conns, nil, true)
}

// Run accepts connections from l and serves them one at a time. The autorun
// program keeps ticking while no host is connected. Run closes l on return
// and returns nil when ctx is cancelled.
func (s *Server) Run(ctx context.Context, l transport.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.Close()

	conns := make(chan io.ReadWriteCloser)
	acceptErr := make(chan error, 1)
	go func() {
		for {
			c, err := l.Accept(ctx)
			if err != nil {
				acceptErr <- err
				return
			}
			select {
			case conns <- c:
			case <-ctx.Done():
				c.Close()
				return
			}
		}
	}()

	err := s.loop(ctx, conns, acceptErr, false)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) loop(ctx context.Context, conns <-chan io.ReadWriteCloser, acceptErr <-chan error, once bool) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var cur *session
	drop := func(reason string) {
		if cur == nil {
			return
		}
		cur.cancel()
		cur.conn.Close()
		s.log.Info("host disconnected", zap.String("reason", reason))
		cur = nil
	}
	defer drop("shutdown")

	for {
		// a nil channel never fires, so no session means no command case
		var cmds chan inbound
		if cur != nil {
			cmds = cur.cmds
		} else if once && conns == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-acceptErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accept: %w", err)

		case <-ticker.C:
			if s.sched != nil {
				s.sched.Advance()
			}

		case c := <-conns:
			if once {
				conns = nil
			}
			if cur != nil {
				s.log.Warn("refusing second host, link busy")
				c.Close()
				continue
			}
			cur = s.open(ctx, c)
			s.log.Info("host connected")

		case in, ok := <-cmds:
			if !ok {
				drop("peer closed")
				continue
			}
			if !s.service(cur, in) {
				drop("write failed")
			} else if s.disp.TakeReset() {
				drop("reset")
			}
		}
	}
}

func (s *Server) open(ctx context.Context, conn io.ReadWriteCloser) *session {
	sctx, cancel := context.WithCancel(ctx)
	sess := &session{conn: conn, cmds: make(chan inbound), cancel: cancel}
	go s.readCommands(sctx, conn, sess.cmds)
	return sess
}

// readCommands decodes commands from conn until it fails or ctx is done
func (s *Server) readCommands(ctx context.Context, conn io.Reader, out chan<- inbound) {
	defer close(out)
	for {
		cmd, err := s.codec.ReadCommand(conn)
		if err != nil && !errors.Is(err, wire.ErrTooManyArgs) {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Warn("command read failed", zap.Error(err))
			}
			return
		}
		select {
		case out <- inbound{cmd: cmd, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// service dispatches one command and writes its result
func (s *Server) service(sess *session, in inbound) bool {
	var res wire.Result
	if in.err != nil {
		// oversized frame, already skipped by the reader
		res = wire.NewResult(wire.StatusInvalidArgsCount, in.cmd, nil)
	} else {
		res = s.disp.Dispatch(in.cmd)
	}

	data := s.codec.EncodeResult(res)
	n, err := sess.conn.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.log.Warn("result write failed", zap.Stringer("opcode", res.Opcode), zap.Error(err))
		return false
	}
	s.log.Debug("result",
		zap.Stringer("opcode", res.Opcode),
		zap.Uint64("id", res.ID),
		zap.Stringer("status", res.Status),
		zap.Int("payload", len(res.Payload)))
	return true
}
