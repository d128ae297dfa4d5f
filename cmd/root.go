// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/config"
	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/transport"
)

var (
	cfgFile  string
	logLevel string

	// Link flags, applied over the loaded configuration when set
	linkKind string
	address  string
	channel  int
	portName string
	baudRate int
	wsURL    string
	noSwapID bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tanklink",
	Short: "Command link for the Bluetooth tank",
	Long: `Tanklink - host tools for the tank command/result protocol.

Sends commands to the tank, prints and captures the results it answers with,
drives it from an interactive console and runs a simulated tank for bench
work without hardware.

Connection modes:
  RFCOMM:    --address 98:D3:31:FB:2A:1C [--channel 1]   (Linux)
  Serial:    --port /dev/rfcomm0 [--baud 115200]
  TCP:       --address 127.0.0.1:7420                    (simulator or bridge)
  WebSocket: --url ws://host:7421/tank
  Loopback:  --kind loopback                             (echoes every command)

Settings are read from tanklink.yaml (or --config) and TANKLINK_* environment
variables; flags override both.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./tanklink.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	addLinkFlags(rootCmd.PersistentFlags())
}

// addLinkFlags defines the connection flags shared by every command
func addLinkFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&linkKind, "kind", "k", "", "Transport: rfcomm, serial, tcp, ws or loopback")
	fs.StringVarP(&address, "address", "a", "", "Bluetooth MAC (rfcomm) or host:port (tcp)")
	fs.IntVar(&channel, "channel", 1, "RFCOMM channel")
	fs.StringVarP(&portName, "port", "p", "", "Serial port device")
	fs.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	fs.StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	fs.BoolVar(&noSwapID, "no-swap-id", false, "Send correlation ids without byte swapping")
}

// setup loads the configuration, applies flag overrides and installs the
// logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, c)

	l, err := observability.SetupLogger(c.Log)
	if err != nil {
		return err
	}
	cfg = c
	logger = l
	return nil
}

// applyFlags overrides configuration values with explicitly set flags. When
// no --kind is given the transport is inferred from the connection flag used.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("address") {
		c.Link.Address = address
	}
	if flags.Changed("channel") {
		c.Link.Channel = channel
	}
	if flags.Changed("port") {
		c.Link.Port = portName
	}
	if flags.Changed("baud") {
		c.Link.Baud = baudRate
	}
	if flags.Changed("url") {
		c.Link.URL = wsURL
	}
	if flags.Changed("no-swap-id") {
		c.Link.SwapID = !noSwapID
	}

	switch {
	case flags.Changed("kind"):
		c.Link.Kind = linkKind
	case flags.Changed("url"):
		c.Link.Kind = transport.KindWS
	case flags.Changed("port"):
		c.Link.Kind = transport.KindSerial
	case flags.Changed("address"):
		if _, err := transport.ParseBDAddr(address); err == nil {
			c.Link.Kind = transport.KindRFCOMM
		} else {
			c.Link.Kind = transport.KindTCP
		}
	}
}

// Execute runs the root command. Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
