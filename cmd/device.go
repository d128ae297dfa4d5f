// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/autorun"
	"github.com/ziutektech/tanklink/pkg/device"
	"github.com/ziutektech/tanklink/pkg/transport"
	"github.com/ziutektech/tanklink/pkg/wire"
)

var (
	deviceKind     string
	deviceListen   string
	devicePath     string
	deviceTick     int
	autorunAtStart bool
	wallDistance   float32
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Run a simulated tank",
	Long: `Serve the tank protocol from a simulated tank.

The simulator accepts one host at a time over TCP or WebSocket and answers
every command the way the firmware does. The autorun program from the
configuration file keeps running between connections.

Examples:
  tanklink device --listen 127.0.0.1:7420
  tanklink device --serve ws --listen :8080 --path /tank --autorun-at-start`,
	RunE: runDevice,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.Flags().StringVar(&deviceKind, "serve", "", "Listener kind: tcp or ws (default from config)")
	deviceCmd.Flags().StringVar(&deviceListen, "listen", "", "Listen address host:port (default from config)")
	deviceCmd.Flags().StringVar(&devicePath, "path", "", "WebSocket upgrade path (default from config)")
	deviceCmd.Flags().IntVar(&deviceTick, "tick", 0, "Autorun tick period in milliseconds (default from config)")
	deviceCmd.Flags().BoolVar(&autorunAtStart, "autorun-at-start", false, "Start the autorun program immediately")
	deviceCmd.Flags().Float32Var(&wallDistance, "wall", 1200, "Simulated distance to the nearest wall in millimeters")
}

func runDevice(cmd *cobra.Command, args []string) error {
	dc := cfg.Device
	if cmd.Flags().Changed("serve") {
		dc.Kind = deviceKind
	}
	if cmd.Flags().Changed("listen") {
		dc.Listen = deviceListen
	}
	if cmd.Flags().Changed("path") {
		dc.Path = devicePath
	}
	if cmd.Flags().Changed("tick") {
		dc.TickMS = deviceTick
	}

	program, err := autorun.ParseProgram(dc.Autorun)
	if err != nil {
		return fmt.Errorf("autorun program: %w", err)
	}

	log := logger.Named("device")
	sim := device.NewSimulator(log)
	sim.SetEnvironment(wallDistance, false, false, false)
	sched := autorun.NewScheduler(program, sim, autorun.WithLogger(log))
	codec := wire.DeviceCodec()
	disp := device.NewDispatcher(sim, sched, codec, log)
	server := device.NewServer(disp, sched, codec, time.Duration(dc.TickMS)*time.Millisecond, log)

	l, err := transport.Listen(dc.Kind, dc.Listen, dc.Path)
	if err != nil {
		return err
	}

	if autorunAtStart {
		sched.Start()
	}

	fmt.Printf("Tanklink - Device Simulator\n")
	fmt.Printf("Listening: %s://%s", dc.Kind, l.Addr())
	if dc.Kind == transport.KindWS {
		fmt.Printf("%s", dc.Path)
	}
	fmt.Printf("\nAutorun: %d actions, looping=%v, running=%v\n", len(program.Actions), program.Looping, sched.Running())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	log.Info("device started",
		zap.String("kind", dc.Kind),
		zap.String("addr", l.Addr()),
		zap.Duration("tick", time.Duration(dc.TickMS)*time.Millisecond),
	)
	if err := server.Run(cmd.Context(), l); err != nil {
		return err
	}
	log.Info("device stopped", zap.Int("moves", sim.Moves()), zap.Int("resets", sim.Resets()))
	return nil
}
