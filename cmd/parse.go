// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ziutektech/tanklink/pkg/wire"
)

const commandUsage = `Commands:
  move <forward|backward|left|right|current> <speed 0-255>
  stop
  text <message>              (up to 16 characters)
  sensors
  head <angle -90..90>
  light <front|rear|left|right> <on|off|0-255>
  buzzer <on|off|0-255>
  reset
  autorun <on|off>
  raw <opcode> [arg bytes...] (no validation, for protocol testing)`

// parseCommand builds a command from command line words
func parseCommand(args []string) (wire.Command, error) {
	if len(args) == 0 {
		return wire.Command{}, fmt.Errorf("no command given")
	}
	name := strings.ToLower(args[0])
	rest := args[1:]

	want := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", name, n, len(rest))
		}
		return nil
	}

	switch name {
	case "move":
		if err := want(2); err != nil {
			return wire.Command{}, err
		}
		dir, err := parseDirection(rest[0])
		if err != nil {
			return wire.Command{}, err
		}
		speed, err := parseByte(rest[1])
		if err != nil {
			return wire.Command{}, fmt.Errorf("speed: %w", err)
		}
		return wire.NewMoveCommand(dir, speed), nil

	case "stop":
		if err := want(0); err != nil {
			return wire.Command{}, err
		}
		return wire.NewStopCommand(), nil

	case "text", "print":
		text := strings.Join(rest, " ")
		if len(text) > wire.MaxArgs {
			return wire.Command{}, fmt.Errorf("text is %d bytes, at most %d fit", len(text), wire.MaxArgs)
		}
		return wire.NewPrintTextCommand(text), nil

	case "sensors", "state":
		if err := want(0); err != nil {
			return wire.Command{}, err
		}
		return wire.NewSensorStateRequest(), nil

	case "head":
		if err := want(1); err != nil {
			return wire.Command{}, err
		}
		angle, err := strconv.Atoi(rest[0])
		if err != nil || angle < -90 || angle > 90 {
			return wire.Command{}, fmt.Errorf("head angle must be -90..90, got %q", rest[0])
		}
		return wire.NewHeadSensorCommand(angle), nil

	case "light":
		if err := want(2); err != nil {
			return wire.Command{}, err
		}
		light, err := parseLight(rest[0])
		if err != nil {
			return wire.Command{}, err
		}
		level, err := parseLevel(rest[1])
		if err != nil {
			return wire.Command{}, err
		}
		return wire.NewLightCommand(light, level), nil

	case "buzzer":
		if err := want(1); err != nil {
			return wire.Command{}, err
		}
		level, err := parseLevel(rest[0])
		if err != nil {
			return wire.Command{}, err
		}
		return wire.NewBuzzerCommand(level), nil

	case "reset":
		if err := want(0); err != nil {
			return wire.Command{}, err
		}
		return wire.NewResetCommand(), nil

	case "autorun":
		if err := want(1); err != nil {
			return wire.Command{}, err
		}
		level, err := parseLevel(rest[0])
		if err != nil {
			return wire.Command{}, err
		}
		return wire.NewAutorunCommand(level != 0), nil

	case "raw":
		if len(rest) == 0 {
			return wire.Command{}, fmt.Errorf("raw needs an opcode")
		}
		op, err := parseByte(rest[0])
		if err != nil {
			return wire.Command{}, fmt.Errorf("opcode: %w", err)
		}
		var bytes []byte
		for _, a := range rest[1:] {
			b, err := parseByte(a)
			if err != nil {
				return wire.Command{}, err
			}
			bytes = append(bytes, b)
		}
		return wire.NewCommand(wire.Opcode(op), bytes...)
	}
	return wire.Command{}, fmt.Errorf("unknown command %q", args[0])
}

func parseDirection(s string) (wire.Direction, error) {
	switch strings.ToLower(s) {
	case "forward", "f":
		return wire.DirForward, nil
	case "backward", "back", "b":
		return wire.DirBackward, nil
	case "left", "l":
		return wire.DirLeft, nil
	case "right", "r":
		return wire.DirRight, nil
	case "current", "c":
		return wire.DirCurrent, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func parseLight(s string) (wire.Light, error) {
	switch strings.ToLower(s) {
	case "front":
		return wire.LightFront, nil
	case "rear":
		return wire.LightRear, nil
	case "left":
		return wire.LightLeft, nil
	case "right":
		return wire.LightRight, nil
	}
	return 0, fmt.Errorf("unknown light %q", s)
}

func parseLevel(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "on":
		return wire.LevelOn, nil
	case "off":
		return wire.LevelOff, nil
	}
	return parseByte(s)
}

// parseByte accepts decimal or 0x-prefixed hex values up to 255
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte value %q", s)
	}
	return uint8(v), nil
}
