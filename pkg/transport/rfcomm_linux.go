// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package transport

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DialRFCOMM opens an RFCOMM stream socket to a paired tank.
// address is the Bluetooth MAC in the usual colon notation.
func DialRFCOMM(ctx context.Context, address string, channel int) (Conn, error) {
	bdaddr, err := ParseBDAddr(address)
	if err != nil {
		return nil, err
	}
	if channel < 1 || channel > 30 {
		return nil, fmt.Errorf("invalid RFCOMM channel %d", channel)
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}

	sa := &unix.SockaddrRFCOMM{Addr: bdaddr, Channel: uint8(channel)}

	// connect blocks for the page timeout; on cancellation the socket is
	// released once the kernel gives up
	done := make(chan error, 1)
	go func() { done <- unix.Connect(fd, sa) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		go func() {
			<-done
			unix.Close(fd)
		}()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, ctx.Err())
	}
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to connect to %s channel %d: %w", address, channel, err)
	}

	// a non-blocking descriptor lets os.File use the poller, so Close
	// unblocks a pending Read
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm nonblock: %w", err)
	}
	return os.NewFile(uintptr(fd), "rfcomm:"+address), nil
}
