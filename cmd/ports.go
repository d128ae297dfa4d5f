// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziutektech/tanklink/pkg/transport"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports present on this machine.

A tank paired through the system Bluetooth stack shows up as a serial port
(for example /dev/rfcomm0 or COM5) that can be used with --port.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.SerialPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
