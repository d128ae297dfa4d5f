// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package byteswap reverses the byte order of fixed-width integers.
//
// The host and the tank firmware do not share a byte order for every field,
// so multi-byte values that cross the link are swapped on the host side.
// Signed variants reverse the raw bytes; the sign bit moves with its byte.
package byteswap

// Uint16 reverses the two bytes of v
func Uint16(v uint16) uint16 {
	return v<<8 | v>>8
}

// Int16 reverses the two bytes of v
func Int16(v int16) int16 {
	return int16(Uint16(uint16(v)))
}

// Uint32 reverses the four bytes of v
func Uint32(v uint32) uint32 {
	v = (v<<8)&0xFF00FF00 | (v>>8)&0x00FF00FF
	return v<<16 | v>>16
}

// Int32 reverses the four bytes of v
func Int32(v int32) int32 {
	return int32(Uint32(uint32(v)))
}

// Uint64 reverses the eight bytes of v
func Uint64(v uint64) uint64 {
	v = (v<<8)&0xFF00FF00FF00FF00 | (v>>8)&0x00FF00FF00FF00FF
	v = (v<<16)&0xFFFF0000FFFF0000 | (v>>16)&0x0000FFFF0000FFFF
	return v<<32 | v>>32
}

// Int64 reverses the eight bytes of v
func Int64(v int64) int64 {
	return int64(Uint64(uint64(v)))
}
