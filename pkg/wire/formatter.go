// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"strings"
	"time"
)

// FormatOpcode returns the human-readable name for an opcode
func FormatOpcode(op Opcode) string {
	switch op {
	case OpMove:
		return "MOVE"
	case OpStop:
		return "STOP"
	case OpPrintText:
		return "PRINT_TEXT"
	case OpGetSensorState:
		return "GET_SENSOR_STATE"
	case OpMoveHeadSensor:
		return "MOVE_HEAD_SENSOR"
	case OpConfigureLight:
		return "CONFIGURE_LIGHT"
	case OpConfigureBuzz:
		return "CONFIGURE_BUZZER"
	case OpReset:
		return "RESET"
	case OpAutorun:
		return "AUTORUN"
	default:
		return "UNKNOWN"
	}
}

// FormatStatus returns the human-readable name for a status
func FormatStatus(s Status) string {
	names := []string{"SUCCESS", "INVALID_OPCODE", "INVALID_ARGS_COUNT", "INVALID_STATE", "BUSY", "NO_HANDLER"}
	if int(s) < len(names) {
		return names[s]
	}
	return "UNKNOWN"
}

// FormatDirection returns the human-readable name for an engine direction
func FormatDirection(d Direction) string {
	switch d {
	case DirBackward:
		return "BACKWARD"
	case DirLeft:
		return "LEFT"
	case DirRight:
		return "RIGHT"
	case DirForward:
		return "FORWARD"
	case DirCurrent:
		return "CURRENT"
	default:
		return "UNKNOWN"
	}
}

// FormatLight returns the human-readable name for a light output
func FormatLight(l Light) string {
	switch l {
	case LightFront:
		return "FRONT"
	case LightRear:
		return "REAR"
	case LightLeft:
		return "LEFT"
	case LightRight:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats a command into a human-readable line
func FormatCommand(c Command) string {
	return fmt.Sprintf("%s (0x%02X) id=%016X args=%d%s",
		FormatOpcode(c.Opcode), uint8(c.Opcode), c.ID, c.Count, formatArguments(c))
}

func formatArguments(c Command) string {
	args := c.Arguments()
	switch c.Opcode {
	case OpMove:
		if len(args) == 2 {
			return fmt.Sprintf(" [%s speed=%d]", FormatDirection(Direction(args[0])), args[1])
		}
	case OpPrintText:
		return fmt.Sprintf(" %q", string(args))
	case OpMoveHeadSensor:
		if len(args) == 1 {
			return fmt.Sprintf(" [angle=%d°]", int(args[0])-90)
		}
	case OpConfigureLight:
		if len(args) == 2 {
			return fmt.Sprintf(" [%s level=%d]", FormatLight(Light(args[0])), args[1])
		}
	case OpConfigureBuzz:
		if len(args) == 1 {
			return fmt.Sprintf(" [level=%d]", args[0])
		}
	case OpAutorun:
		if len(args) == 1 {
			if args[0] != 0 {
				return " [on]"
			}
			return " [off]"
		}
	}
	if len(args) == 0 {
		return ""
	}
	return fmt.Sprintf(" % X", args)
}

// FormatResult formats a result into a human-readable string.
// Payloads of successful sensor state results are decoded with c.
func (c Codec) FormatResult(r Result, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s id=%016X len=%d\n",
		at.Format("15:04:05.000"), FormatOpcode(r.Opcode), FormatStatus(r.Status), r.ID, len(r.Payload))
	b.WriteString(c.FormatPayload(r))
	return b.String()
}

// FormatPayload formats the payload of a result
func (c Codec) FormatPayload(r Result) string {
	if len(r.Payload) == 0 {
		return ""
	}
	if r.Opcode == OpGetSensorState && r.Status == StatusSuccess {
		s, err := c.DecodeSensorState(r.Payload)
		if err == nil {
			return FormatSensorState(s)
		}
	}
	return fmt.Sprintf("  Payload: % X\n", r.Payload)
}

// FormatSensorState formats a decoded sensor state
func FormatSensorState(s SensorState) string {
	return fmt.Sprintf("  Head: %.0f mm, Temperature: %.1f°C, Obstacles: left=%s right=%s rear=%s\n",
		s.HeadDistanceMM, s.TemperatureC, formatFlag(s.Left), formatFlag(s.Right), formatFlag(s.Rear))
}

func formatFlag(v uint8) string {
	if v != 0 {
		return "yes"
	}
	return "no"
}

// FormatLatency renders a round-trip time in milliseconds
func FormatLatency(d time.Duration) string {
	return fmt.Sprintf("%.1f ms", float64(d.Microseconds())/1000)
}
