// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziutektech/tanklink/pkg/wire"
)

var bytesID uint64

var bytesCmd = &cobra.Command{
	Use:   "bytes <command> [args...]",
	Short: "Print the wire encoding of a command",
	Long: `Encode a command exactly as the host would send it and print the bytes.

No connection is opened. The correlation id is fixed with --id so the output
can be compared against captures from the tank side.

` + commandUsage,
	Args: cobra.MinimumNArgs(1),
	RunE: runBytes,
}

func init() {
	rootCmd.AddCommand(bytesCmd)
	bytesCmd.Flags().Uint64Var(&bytesID, "id", 1, "Correlation id to encode")
}

func runBytes(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args)
	if err != nil {
		return err
	}
	command.ID = bytesID

	codec := linkCodec(cfg.Link)
	data, err := codec.EncodeCommand(command)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", wire.FormatCommand(command))
	fmt.Printf("  Swapped id: %v\n", codec.SwapID)
	fmt.Printf("  Header: % X\n", data[:wire.CommandHeaderSize])
	if len(data) > wire.CommandHeaderSize {
		fmt.Printf("  Args:   % X\n", data[wire.CommandHeaderSize:])
	}
	fmt.Printf("  Length: %d bytes\n", len(data))
	return nil
}
