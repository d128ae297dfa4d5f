// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialConnection wraps a serial port, e.g. an HC-05 module paired as
// /dev/rfcomm0 or a USB serial bridge.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// OpenSerial opens a serial port at 8N1
func OpenSerial(portName string, baudRate int) (Conn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return &SerialConnection{port: port}, nil
}

// SerialPorts lists the serial ports present on this machine
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
