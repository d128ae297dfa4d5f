// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Tanklink - host tools and device simulator for the tank command protocol

package main

import (
	"os"

	"github.com/ziutektech/tanklink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
