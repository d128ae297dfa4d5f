// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBDAddr parses "AA:BB:CC:DD:EE:FF" into the little-endian byte order
// the kernel's bdaddr_t uses.
func ParseBDAddr(s string) ([6]byte, error) {
	var addr [6]byte
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 6 {
		return addr, fmt.Errorf("invalid Bluetooth address %q", s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return addr, fmt.Errorf("invalid Bluetooth address %q", s)
		}
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return addr, fmt.Errorf("invalid Bluetooth address %q: %w", s, err)
		}
		addr[5-i] = byte(b)
	}
	return addr, nil
}
