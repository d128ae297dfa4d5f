// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestCommandRoundTrip(t *testing.T) {
	sixteen := make([]byte, MaxArgs)
	for i := range sixteen {
		sixteen[i] = byte(i + 1)
	}

	tests := []struct {
		name string
		op   Opcode
		id   uint64
		args []byte
	}{
		{"no arguments", OpStop, 0x1122334455667788, nil},
		{"move", OpMove, 42, []byte{byte(DirForward), 255}},
		{"sixteen arguments", OpPrintText, 0xFFFFFFFFFFFFFFFF, sixteen},
		{"zero id", OpAutorun, 0, []byte{1}},
	}

	for _, codec := range []Codec{HostCodec(), DeviceCodec()} {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cmd, err := NewCommand(tt.op, tt.args...)
				if err != nil {
					t.Fatalf("NewCommand() error = %v", err)
				}
				cmd.ID = tt.id

				data, err := codec.EncodeCommand(cmd)
				if err != nil {
					t.Fatalf("EncodeCommand() error = %v", err)
				}
				if len(data) != CommandHeaderSize+len(tt.args) {
					t.Errorf("encoded length = %d, want %d", len(data), CommandHeaderSize+len(tt.args))
				}

				got, err := codec.DecodeCommand(data)
				if err != nil {
					t.Fatalf("DecodeCommand() error = %v", err)
				}
				if got != cmd {
					t.Errorf("DecodeCommand() = %+v, want %+v", got, cmd)
				}
			})
		}
	}
}

func TestResultRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantLen int
	}{
		{"empty payload", Result{Status: StatusSuccess, Opcode: OpMove, ID: 7}, ResultHeaderSize},
		{"busy", Result{Status: StatusBusy, Opcode: OpConfigureLight, ID: 0xDEADBEEF}, ResultHeaderSize},
		{"sensor payload", Result{Status: StatusSuccess, Opcode: OpGetSensorState, ID: 1, Payload: make([]byte, SensorStateSize)}, ResultHeaderSize + SensorStateSize},
	}

	codec := HostCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := codec.EncodeResult(tt.result)
			if len(data) != tt.wantLen {
				t.Errorf("encoded length = %d, want %d", len(data), tt.wantLen)
			}
			got, err := codec.DecodeResult(data)
			if err != nil {
				t.Fatalf("DecodeResult() error = %v", err)
			}
			if got.Status != tt.result.Status || got.Opcode != tt.result.Opcode || got.ID != tt.result.ID {
				t.Errorf("DecodeResult() = %+v, want %+v", got, tt.result)
			}
			if !bytes.Equal(got.Payload, tt.result.Payload) {
				t.Errorf("payload = %X, want %X", got.Payload, tt.result.Payload)
			}
		})
	}
}

func TestHostIDIsSwappedOnTheWire(t *testing.T) {
	const id = 0x0102030405060708
	host := HostCodec()
	device := DeviceCodec()

	cmd := NewMoveCommand(DirForward, 255)
	cmd.ID = id
	data, err := host.EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}

	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if !bytes.Equal(data[1:9], want) {
		t.Errorf("id bytes = % X, want % X", data[1:9], want)
	}
	if data[0] != byte(OpMove) || data[9] != 2 {
		t.Errorf("single byte fields changed: opcode=%d count=%d", data[0], data[9])
	}

	// The device decodes in native order and echoes what it saw
	seen, err := device.DecodeCommand(data)
	if err != nil {
		t.Fatalf("device DecodeCommand() error = %v", err)
	}
	if seen.ID != binary.LittleEndian.Uint64(want) {
		t.Errorf("device id = 0x%016X, want 0x%016X", seen.ID, binary.LittleEndian.Uint64(want))
	}

	reply := device.EncodeResult(NewResult(StatusSuccess, seen, nil))
	res, err := host.DecodeResult(reply)
	if err != nil {
		t.Fatalf("host DecodeResult() error = %v", err)
	}
	if res.ID != id {
		t.Errorf("host recovered id 0x%016X, want 0x%016X", res.ID, uint64(id))
	}
	if res.Opcode != OpMove || res.Status != StatusSuccess {
		t.Errorf("result = %+v", res)
	}
}

func TestDecodeErrors(t *testing.T) {
	codec := DeviceCodec()

	t.Run("short command", func(t *testing.T) {
		_, err := codec.DecodeCommand(make([]byte, CommandHeaderSize-1))
		if !errors.Is(err, ErrShortFrame) {
			t.Errorf("error = %v, want ErrShortFrame", err)
		}
	})

	t.Run("too many args", func(t *testing.T) {
		data := make([]byte, CommandHeaderSize+17)
		data[0] = byte(OpPrintText)
		data[9] = 17
		_, err := codec.DecodeCommand(data)
		if !errors.Is(err, ErrTooManyArgs) {
			t.Errorf("error = %v, want ErrTooManyArgs", err)
		}
	})

	t.Run("args mismatch", func(t *testing.T) {
		data := make([]byte, CommandHeaderSize+1)
		data[0] = byte(OpMove)
		data[9] = 2
		_, err := codec.DecodeCommand(data)
		if !errors.Is(err, ErrArgsMismatch) {
			t.Errorf("error = %v, want ErrArgsMismatch", err)
		}
	})

	t.Run("payload too large", func(t *testing.T) {
		h := codec.EncodeResultHeader(ResultHeader{Opcode: OpGetSensorState, PayloadLength: DefaultMaxPayload + 1})
		got, err := codec.DecodeResultHeader(h)
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("error = %v, want ErrPayloadTooLarge", err)
		}
		if got.PayloadLength != DefaultMaxPayload+1 {
			t.Errorf("PayloadLength = %d, want header returned alongside error", got.PayloadLength)
		}
	})

	t.Run("payload mismatch", func(t *testing.T) {
		data := codec.EncodeResult(Result{Opcode: OpGetSensorState, Payload: []byte{1, 2, 3}})
		_, err := codec.DecodeResult(data[:len(data)-1])
		if !errors.Is(err, ErrPayloadMismatch) {
			t.Errorf("error = %v, want ErrPayloadMismatch", err)
		}
	})

	t.Run("encode too many args", func(t *testing.T) {
		_, err := codec.EncodeCommand(Command{Opcode: OpPrintText, Count: 17})
		if !errors.Is(err, ErrTooManyArgs) {
			t.Errorf("error = %v, want ErrTooManyArgs", err)
		}
	})
}

func TestReadCommandStream(t *testing.T) {
	codec := DeviceCodec()
	var stream bytes.Buffer

	// Oversized frame: header claiming 20 args followed by the stray bytes
	bad := codec.EncodeCommandHeader(CommandHeader{Opcode: OpPrintText, ID: 99, ArgCount: 20})
	stream.Write(bad)
	stream.Write(make([]byte, 20))

	good := NewLightCommand(LightFront, LevelOn)
	good.ID = 100
	data, _ := codec.EncodeCommand(good)
	stream.Write(data)

	cmd, err := codec.ReadCommand(&stream)
	if !errors.Is(err, ErrTooManyArgs) {
		t.Fatalf("first ReadCommand() error = %v, want ErrTooManyArgs", err)
	}
	if cmd.Opcode != OpPrintText || cmd.ID != 99 || cmd.Count != 0 {
		t.Errorf("oversized command = %+v", cmd)
	}

	cmd, err = codec.ReadCommand(&stream)
	if err != nil {
		t.Fatalf("second ReadCommand() error = %v", err)
	}
	if cmd != good {
		t.Errorf("second ReadCommand() = %+v, want %+v", cmd, good)
	}

	if _, err := codec.ReadCommand(&stream); !errors.Is(err, io.EOF) {
		t.Errorf("ReadCommand() on empty stream error = %v, want EOF", err)
	}
}

func TestReadResultStream(t *testing.T) {
	codec := HostCodec()

	t.Run("sequential results", func(t *testing.T) {
		var stream bytes.Buffer
		want := []Result{
			{Status: StatusSuccess, Opcode: OpStop, ID: 1},
			{Status: StatusSuccess, Opcode: OpGetSensorState, ID: 2, Payload: codec.EncodeSensorState(SensorState{HeadDistanceMM: 120})},
			{Status: StatusInvalidArgsCount, Opcode: OpMove, ID: 3},
		}
		for _, r := range want {
			stream.Write(codec.EncodeResult(r))
		}
		for i, w := range want {
			got, err := codec.ReadResult(&stream)
			if err != nil {
				t.Fatalf("ReadResult(%d) error = %v", i, err)
			}
			if got.ID != w.ID || got.Opcode != w.Opcode || got.Status != w.Status || !bytes.Equal(got.Payload, w.Payload) {
				t.Errorf("ReadResult(%d) = %+v, want %+v", i, got, w)
			}
		}
	})

	t.Run("truncated header", func(t *testing.T) {
		data := codec.EncodeResult(Result{Opcode: OpStop})
		_, err := codec.ReadResult(bytes.NewReader(data[:5]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("error = %v, want ErrUnexpectedEOF", err)
		}
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := codec.EncodeResult(Result{Opcode: OpGetSensorState, Payload: make([]byte, SensorStateSize)})
		_, err := codec.ReadResult(bytes.NewReader(data[:ResultHeaderSize+4]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("error = %v, want ErrUnexpectedEOF", err)
		}
	})
}

func TestSensorStateLayout(t *testing.T) {
	codec := DeviceCodec()
	s := SensorState{HeadDistanceMM: 250.5, TemperatureC: 21.25, Left: 1, Right: 0, Rear: 1}

	data := codec.EncodeSensorState(s)
	if len(data) != SensorStateSize {
		t.Fatalf("length = %d, want %d", len(data), SensorStateSize)
	}
	// 250.5 = 0x437A8000, little endian
	if !bytes.Equal(data[0:4], []byte{0x00, 0x80, 0x7A, 0x43}) {
		t.Errorf("distance bytes = % X", data[0:4])
	}
	if data[8] != 1 || data[9] != 0 || data[10] != 1 {
		t.Errorf("flag bytes = % X", data[8:])
	}

	got, err := codec.DecodeSensorState(data)
	if err != nil {
		t.Fatalf("DecodeSensorState() error = %v", err)
	}
	if got != s {
		t.Errorf("DecodeSensorState() = %+v, want %+v", got, s)
	}

	if _, err := codec.DecodeSensorState(data[:10]); !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("short payload error = %v, want ErrPayloadMismatch", err)
	}
}

func TestThermometerCelsius(t *testing.T) {
	tests := []struct {
		adc  uint16
		want float32
	}{
		{0, -40},
		{512, 42.5},
		{1024, 125},
	}
	for _, tt := range tests {
		if got := ThermometerCelsius(tt.adc); got != tt.want {
			t.Errorf("ThermometerCelsius(%d) = %v, want %v", tt.adc, got, tt.want)
		}
	}
}
