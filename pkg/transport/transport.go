// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport opens the byte streams the tank protocol runs over:
// Bluetooth RFCOMM, serial ports, TCP and WebSocket, plus an in-memory
// loopback for bench work.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ziutektech/tanklink/pkg/config"
)

// Conn is a bidirectional byte stream. Close must unblock a pending Read.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Listener yields inbound connections for the device side
type Listener interface {
	// Accept blocks until a connection arrives, ctx is done or the
	// listener is closed
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() string
}

// Dialer opens a new connection to the configured peer
type Dialer func(ctx context.Context) (Conn, error)

// Transport kinds
const (
	KindRFCOMM   = "rfcomm"
	KindSerial   = "serial"
	KindTCP      = "tcp"
	KindWS       = "ws"
	KindLoopback = "loopback"
)

// ErrUnsupported is returned for kinds not available on this platform
var ErrUnsupported = errors.New("transport: unsupported")

// Endpoint identifies a peer
type Endpoint struct {
	Kind    string
	Address string // MAC for rfcomm, host:port for tcp
	Channel int    // RFCOMM channel
	Port    string // serial device
	Baud    int
	URL     string // ws:// or wss:// URL
	Timeout time.Duration
}

// EndpointFromConfig builds an Endpoint from the link configuration
func EndpointFromConfig(c config.LinkConfig) Endpoint {
	return Endpoint{
		Kind:    strings.ToLower(c.Kind),
		Address: c.Address,
		Channel: c.Channel,
		Port:    c.Port,
		Baud:    c.Baud,
		URL:     c.URL,
		Timeout: time.Duration(c.DialTimeoutMS) * time.Millisecond,
	}
}

// String describes the endpoint for status lines
func (e Endpoint) String() string {
	switch e.Kind {
	case KindRFCOMM:
		return fmt.Sprintf("RFCOMM: %s channel %d", e.Address, e.Channel)
	case KindSerial:
		return fmt.Sprintf("Serial: %s @ %d baud", e.Port, e.Baud)
	case KindTCP:
		return fmt.Sprintf("TCP: %s", e.Address)
	case KindWS:
		return fmt.Sprintf("WebSocket: %s", e.URL)
	case KindLoopback:
		return "Loopback"
	}
	return e.Kind
}

// Dial opens a connection to e
func Dial(ctx context.Context, e Endpoint) (Conn, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	switch e.Kind {
	case KindRFCOMM:
		return DialRFCOMM(ctx, e.Address, e.Channel)
	case KindSerial:
		return OpenSerial(e.Port, e.Baud)
	case KindTCP:
		return DialTCP(ctx, e.Address)
	case KindWS:
		return DialWebSocket(ctx, e.URL)
	case KindLoopback:
		return NewLoopback(), nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnsupported, e.Kind)
}

// DialerFor returns a Dialer bound to e
func DialerFor(e Endpoint) Dialer {
	return func(ctx context.Context) (Conn, error) {
		return Dial(ctx, e)
	}
}

// Listen opens a device side listener. path is the upgrade path for ws.
func Listen(kind, addr, path string) (Listener, error) {
	switch strings.ToLower(kind) {
	case KindTCP:
		return ListenTCP(addr)
	case KindWS:
		return ListenWebSocket(addr, path)
	}
	return nil, fmt.Errorf("%w: listen kind %q", ErrUnsupported, kind)
}
