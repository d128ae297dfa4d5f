// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziutektech/tanklink/pkg/link"
	"github.com/ziutektech/tanklink/pkg/wire"
)

var (
	sendTimeout int
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Send one command and wait for its result",
	Long: `Send a single command to the tank and wait for the matching result.

` + commandUsage + `

Negative head angles need a "--" separator: tanklink send -- head -45

Exit codes:
  0 - Result received with status SUCCESS
  1 - Result rejected by the tank, or timeout reached without a result
  2 - Connection error

Useful for testing connectivity and for scripting the tank.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds to wait for the result")
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args)
	if err != nil {
		return err
	}

	session, ep, err := OpenSession(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	exit := func(code int) {
		session.Close()
		os.Exit(code)
	}

	fmt.Printf("Tanklink - Send\n")
	fmt.Printf("Connection: %s\n", ep)
	fmt.Printf("Command: %s\n\n", wire.FormatCommand(command))

	id, err := session.Send(command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
		exit(2)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(sendTimeout)*time.Second)
	defer cancel()

	d, err := awaitResult(ctx, session, command.Opcode, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "TIMEOUT: No result within %d seconds\n", sendTimeout)
		} else {
			fmt.Fprintf(os.Stderr, "Interrupted: %v\n", err)
		}
		exit(1)
	}

	fmt.Print(session.Codec().FormatResult(d.Result, d.At))
	if d.Matched {
		fmt.Printf("  Round trip: %s\n", wire.FormatLatency(d.Latency))
	}
	if d.Result.Status != wire.StatusSuccess {
		exit(1)
	}
	exit(0)
	return nil
}

// awaitResult waits for the result answering (op, id). Results for other
// commands are discarded.
func awaitResult(ctx context.Context, s *link.Session, op wire.Opcode, id uint64) (link.Delivery, error) {
	for {
		if err := s.Wait(ctx); err != nil {
			return link.Delivery{}, err
		}
		var found *link.Delivery
		s.Drain(func(d link.Delivery) {
			if found == nil && d.Result.Opcode == op && d.Result.ID == id {
				found = &d
			}
		})
		if found != nil {
			return *found, nil
		}
	}
}
