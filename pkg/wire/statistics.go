// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"fmt"
	"time"
)

// Statistics tracks result counts and error rates on a link
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalResults    uint64
	ValidResults    uint64
	DecodeErrors    uint64
	Rejected        uint64 // non-SUCCESS statuses
	Busy            uint64
	Malformed       uint64
	AnomalousValues uint64
	Dropped         uint64 // results lost to a full receive queue

	// Rates (calculated)
	ResultRate float64 // results/sec
	ErrorRate  float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a result and its errors
func (s *Statistics) Update(r Result, decodeErr error, validationErrors []ValidationError) {
	s.TotalResults++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.DecodeErrors++
		return
	}

	if r.Status != StatusSuccess {
		s.Rejected++
		if r.Status == StatusBusy {
			s.Busy++
		}
	}

	if len(validationErrors) == 0 {
		s.ValidResults++
		return
	}
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyLengthMismatch, AnomalyUnexpectedPayload, AnomalyUnknownOpcode, AnomalyUnknownStatus:
			s.Malformed++
		case AnomalyInvalidTemp, AnomalyInvalidDistance:
			s.AnomalousValues++
		case AnomalyDecodeError:
			s.DecodeErrors++
		}
	}
}

// CalculateRates calculates result and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ResultRate = float64(s.TotalResults) / elapsed
		s.ErrorRate = float64(s.DecodeErrors+s.Malformed+s.AnomalousValues) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, rejectedPercent float64
	if s.TotalResults > 0 {
		validPercent = float64(s.ValidResults) * 100.0 / float64(s.TotalResults)
		rejectedPercent = float64(s.Rejected) * 100.0 / float64(s.TotalResults)
	}

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	result += fmt.Sprintf("Total Results:   %8d\n", s.TotalResults)
	result += fmt.Sprintf("Valid Results:   %8d (%.1f%%)\n", s.ValidResults, validPercent)
	if s.Rejected > 0 {
		result += fmt.Sprintf("Rejected:        %8d (%.1f%%)\n", s.Rejected, rejectedPercent)
		if s.Busy > 0 {
			result += fmt.Sprintf("  Busy:             %5d\n", s.Busy)
		}
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", s.DecodeErrors)
	}
	if s.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.Malformed)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", s.AnomalousValues)
	}
	if s.Dropped > 0 {
		result += fmt.Sprintf("Dropped:         %8d\n", s.Dropped)
	}
	result += fmt.Sprintf("Result Rate:     %8.1f results/sec\n", s.ResultRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"
	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
