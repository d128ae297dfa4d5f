// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of result anomalies
type AnomalyType int

const (
	AnomalyUnknownOpcode AnomalyType = iota
	AnomalyUnknownStatus
	AnomalyLengthMismatch
	AnomalyUnexpectedPayload
	AnomalyInvalidTemp
	AnomalyInvalidDistance
	AnomalyDecodeError
)

// Sensor plausibility bounds
const (
	MinTemperatureC = -40
	MaxTemperatureC = 125
	MaxDistanceMM   = 4000
)

// ValidationError represents a result validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateResult checks a decoded result for values a healthy tank never
// sends. Returns an empty slice when the result is plausible.
func (c Codec) ValidateResult(r Result) []ValidationError {
	errors := []ValidationError{}

	if !r.Opcode.Valid() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownOpcode,
			Message: fmt.Sprintf("Unknown opcode=%d", r.Opcode),
			Details: map[string]interface{}{"opcode": uint8(r.Opcode)},
		})
	}
	if !r.Status.Valid() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownStatus,
			Message: fmt.Sprintf("Unknown status=%d", r.Status),
			Details: map[string]interface{}{"status": uint8(r.Status)},
		})
	}

	if r.Opcode == OpGetSensorState && r.Status == StatusSuccess {
		return append(errors, c.validateSensorState(r.Payload)...)
	}

	if len(r.Payload) > 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnexpectedPayload,
			Message: fmt.Sprintf("%s %s carries %d payload bytes", FormatOpcode(r.Opcode), FormatStatus(r.Status), len(r.Payload)),
			Details: map[string]interface{}{"length": len(r.Payload)},
		})
	}

	return errors
}

func (c Codec) validateSensorState(payload []byte) []ValidationError {
	if len(payload) != SensorStateSize {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("GET_SENSOR_STATE payload is %d bytes (expected %d)", len(payload), SensorStateSize),
			Details: map[string]interface{}{"length": len(payload), "expected": SensorStateSize},
		}}
	}

	s, err := c.DecodeSensorState(payload)
	if err != nil {
		return []ValidationError{{
			Type:    AnomalyDecodeError,
			Message: err.Error(),
		}}
	}

	errors := []ValidationError{}
	temp := float64(s.TemperatureC)
	if math.IsNaN(temp) || temp < MinTemperatureC || temp > MaxTemperatureC {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Temperature %.1f°C outside %d..%d", temp, MinTemperatureC, MaxTemperatureC),
			Details: map[string]interface{}{"temperature": temp},
		})
	}
	dist := float64(s.HeadDistanceMM)
	if math.IsNaN(dist) || dist < 0 || dist > MaxDistanceMM {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidDistance,
			Message: fmt.Sprintf("Head distance %.0f mm outside 0..%d", dist, MaxDistanceMM),
			Details: map[string]interface{}{"distance": dist},
		})
	}
	return errors
}
