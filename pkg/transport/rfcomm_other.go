// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package transport

import (
	"context"
	"fmt"
)

// DialRFCOMM is only available on Linux. Elsewhere, pair the tank as a
// serial port and use the serial transport.
func DialRFCOMM(ctx context.Context, address string, channel int) (Conn, error) {
	if _, err := ParseBDAddr(address); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: rfcomm sockets need linux, use --kind serial", ErrUnsupported)
}
