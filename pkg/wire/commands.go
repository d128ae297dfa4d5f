// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

// Command builder functions create Command values ready for sending.
// Ids are left at zero; the transmit path assigns them.

// NewMoveCommand creates a MOVE command (0x01).
// speed is the PWM level applied to both tracks, 0 stops the engine.
func NewMoveCommand(dir Direction, speed uint8) Command {
	return Command{Opcode: OpMove, Count: 2, Args: [MaxArgs]byte{byte(dir), speed}}
}

// NewStopCommand creates a STOP command (0x02).
// Stops the engine and any running autorun program.
func NewStopCommand() Command {
	return Command{Opcode: OpStop}
}

// NewPrintTextCommand creates a PRINT_TEXT command (0x03).
// Text longer than MaxArgs bytes is truncated.
func NewPrintTextCommand(text string) Command {
	c := Command{Opcode: OpPrintText}
	c.Count = uint8(copy(c.Args[:], text))
	return c
}

// NewSensorStateRequest creates a GET_SENSOR_STATE command (0x04).
// The tank answers with an encoded SensorState payload.
func NewSensorStateRequest() Command {
	return Command{Opcode: OpGetSensorState}
}

// NewHeadSensorCommand creates a MOVE_HEAD_SENSOR command (0x05).
// angle is in degrees, -90 (right) to 90 (left); it is sent offset by 90 so it
// fits an unsigned byte.
func NewHeadSensorCommand(angle int) Command {
	if angle < -90 {
		angle = -90
	} else if angle > 90 {
		angle = 90
	}
	return Command{Opcode: OpMoveHeadSensor, Count: 1, Args: [MaxArgs]byte{byte(angle + 90)}}
}

// NewLightCommand creates a CONFIGURE_LIGHT command (0x06)
func NewLightCommand(light Light, level uint8) Command {
	return Command{Opcode: OpConfigureLight, Count: 2, Args: [MaxArgs]byte{byte(light), level}}
}

// NewBuzzerCommand creates a CONFIGURE_BUZZER command (0x07)
func NewBuzzerCommand(level uint8) Command {
	return Command{Opcode: OpConfigureBuzz, Count: 1, Args: [MaxArgs]byte{level}}
}

// NewResetCommand creates a RESET command (0x08).
// The tank acknowledges and then drops the link.
func NewResetCommand() Command {
	return Command{Opcode: OpReset}
}

// NewAutorunCommand creates an AUTORUN command (0x09).
// enable restarts the stored program from its first action; otherwise the
// program and engine are stopped.
func NewAutorunCommand(enable bool) Command {
	var arg byte
	if enable {
		arg = 1
	}
	return Command{Opcode: OpAutorun, Count: 1, Args: [MaxArgs]byte{arg}}
}
