// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"math"
)

// SensorState is the payload of a successful GET_SENSOR_STATE result.
//
// Layout: [headDistance:f32][temperature:f32][left:u8][right:u8][rear:u8]
type SensorState struct {
	HeadDistanceMM float32
	TemperatureC   float32
	Left           uint8 // obstacle on the left
	Right          uint8 // obstacle on the right
	Rear           uint8 // obstacle behind
}

// EncodeSensorState serializes s in the codec's byte order
func (c Codec) EncodeSensorState(s SensorState) []byte {
	buf := make([]byte, SensorStateSize)
	c.order().PutUint32(buf[0:4], math.Float32bits(s.HeadDistanceMM))
	c.order().PutUint32(buf[4:8], math.Float32bits(s.TemperatureC))
	buf[8] = s.Left
	buf[9] = s.Right
	buf[10] = s.Rear
	return buf
}

// DecodeSensorState parses a sensor state payload
func (c Codec) DecodeSensorState(data []byte) (SensorState, error) {
	if len(data) != SensorStateSize {
		return SensorState{}, fmt.Errorf("%w: sensor state is %d bytes, got %d", ErrPayloadMismatch, SensorStateSize, len(data))
	}
	return SensorState{
		HeadDistanceMM: math.Float32frombits(c.order().Uint32(data[0:4])),
		TemperatureC:   math.Float32frombits(c.order().Uint32(data[4:8])),
		Left:           data[8],
		Right:          data[9],
		Rear:           data[10],
	}, nil
}

// ThermometerCelsius converts a 10-bit thermometer ADC reading to degrees
// Celsius (range -40 to 125).
func ThermometerCelsius(adc uint16) float32 {
	return float32(adc)/1024*165 - 40
}
