// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package autorun

import (
	"errors"
	"testing"
	"time"

	"github.com/ziutektech/tanklink/pkg/config"
	"github.com/ziutektech/tanklink/pkg/wire"
)

func TestParseProgram(t *testing.T) {
	p, err := ParseProgram(config.AutorunConfig{
		Looping: true,
		Actions: []config.ActionConfig{
			{Type: "move", Duration: "1500ms", Args: []int{3, 255}},
			{Type: "Lights", Duration: "0", Args: []int{6, 255}},
			{Type: "buzzer", Duration: "2s", Args: []int{128}},
			{Type: "stop", Duration: "infinite"},
		},
	})
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	want := []Action{
		Move(wire.DirForward, 255, 1500*time.Millisecond),
		Lights(wire.LightFront, 255, 0),
		Buzzer(128, 2*time.Second),
		Stop(Infinite),
	}
	if !p.Looping || len(p.Actions) != len(want) {
		t.Fatalf("ParseProgram() = %+v", p)
	}
	for i := range want {
		if p.Actions[i] != want[i] {
			t.Errorf("action %d = %+v, want %+v", i, p.Actions[i], want[i])
		}
	}
}

func TestParseProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		ac   config.ActionConfig
	}{
		{"unknown type", config.ActionConfig{Type: "jump", Duration: "1s"}},
		{"bad duration", config.ActionConfig{Type: "stop", Duration: "soon"}},
		{"negative duration", config.ActionConfig{Type: "stop", Duration: "-1s"}},
		{"missing args", config.ActionConfig{Type: "move", Duration: "1s", Args: []int{3}}},
		{"bad direction", config.ActionConfig{Type: "move", Duration: "1s", Args: []int{7, 100}}},
		{"arg range", config.ActionConfig{Type: "buzzer", Duration: "1s", Args: []int{256}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProgram(config.AutorunConfig{Actions: []config.ActionConfig{tt.ac}})
			if err == nil {
				t.Error("ParseProgram() succeeded, want error")
			}
		})
	}

	if _, err := ParseProgram(config.AutorunConfig{}); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("empty program error = %v, want ErrEmptyProgram", err)
	}
}

func TestDefaultProgramParses(t *testing.T) {
	if _, err := ParseProgram(config.DefaultProgram()); err != nil {
		t.Errorf("ParseProgram(DefaultProgram()) error = %v", err)
	}
}
