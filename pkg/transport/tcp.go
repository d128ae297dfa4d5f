// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"fmt"
	"net"
)

// DialTCP connects to a tank bridge or simulator over TCP
func DialTCP(ctx context.Context, addr string) (Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		// commands are tiny; do not hold them back
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}

type tcpListener struct {
	l net.Listener
}

// ListenTCP listens for hosts on addr
func ListenTCP(addr string) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &tcpListener{l: l}, nil
}

func (t *tcpListener) Accept(ctx context.Context) (Conn, error) {
	stop := context.AfterFunc(ctx, func() { t.l.Close() })
	defer stop()
	c, err := t.l.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return c, nil
}

func (t *tcpListener) Close() error { return t.l.Close() }

func (t *tcpListener) Addr() string { return t.l.Addr().String() }
