// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ziutektech/tanklink/pkg/link"
)

var (
	driveSpeed int
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive the tank from an interactive console",
	Long: `Interactive console for driving the tank.

Keys:
  w/a/s/d or arrows  Move forward, left, backward, right
  x                  Stop
  +/-                Change speed
  q/e                Turn the head sensor left or right
  o/l                Toggle the front and rear lights
  z/c                Toggle the left and right lights
  space              Toggle the buzzer
  p                  Read the sensors
  t                  Print text on the tank display
  i                  Toggle the autorun program
  r                  Reset the tank and reconnect
  ?                  Toggle the full key help
  esc/ctrl+c         Quit

Requires an interactive terminal.`,
	RunE: runDrive,
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().IntVar(&driveSpeed, "speed", 200, "Initial engine speed (0-255)")
}

func runDrive(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("drive requires an interactive terminal")
	}
	if driveSpeed < 0 || driveSpeed > 255 {
		return fmt.Errorf("speed %d out of range 0-255", driveSpeed)
	}

	ctx := cmd.Context()
	log := quietLogger()
	session, ep := newSession(log)
	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("%s: %w", ep, err)
	}
	defer session.Close()

	model := initialDriveModel(session, ep.String(), uint8(driveSpeed))
	model.reconnectDelay = time.Duration(cfg.Link.ReconnectDelay) * time.Millisecond
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go forwardDeliveries(ctx, session, p, log)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// forwardDeliveries hands received results to the program in batches
func forwardDeliveries(ctx context.Context, s *link.Session, p *tea.Program, log *zap.Logger) {
	for {
		if err := s.Wait(ctx); err != nil {
			log.Debug("delivery forwarder stopped", zap.Error(err))
			return
		}
		var batch driveResultMsg
		s.Drain(func(d link.Delivery) { batch = append(batch, d) })
		if len(batch) > 0 {
			p.Send(batch)
		}
	}
}
