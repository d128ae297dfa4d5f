// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziutektech/tanklink/pkg/capture"
	"github.com/ziutektech/tanklink/pkg/wire"
)

var (
	replayErrorsOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Print the results stored in a capture file",
	Long: `Read a capture written by 'tanklink monitor --capture' and print every
result with its round trip latency, followed by the statistics of the run.

Use --errors-only to print only rejected and anomalous results.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Print only rejected and anomalous results")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	h := r.Header()

	codec := wire.HostCodec()
	codec.SwapID = h.SwapID
	stats := wire.NewStatistics()

	fmt.Printf("Tanklink - Replay\n")
	fmt.Printf("Capture: %s\n", args[0])
	fmt.Printf("Session: %s\n", h.Session)
	fmt.Printf("Started: %s\n", h.Started.Format("2006-01-02 15:04:05.000"))
	if h.Endpoint != "" {
		fmt.Printf("Connection: %s\n", h.Endpoint)
	}
	fmt.Println()

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A truncated tail is normal when the monitor was killed
			fmt.Fprintf(os.Stderr, "Capture ends early after %d records: %v\n", stats.TotalResults, err)
			break
		}

		res := rec.Result()
		verrs := codec.ValidateResult(res)
		stats.Update(res, nil, verrs)

		flagged := len(verrs) > 0 || res.Status != wire.StatusSuccess
		if replayErrorsOnly && !flagged {
			continue
		}

		fmt.Printf("#%d ", rec.Sequence)
		fmt.Print(codec.FormatResult(res, rec.At))
		if len(rec.Args) > 0 {
			fmt.Printf("  Args: % X\n", rec.Args)
		}
		if rec.Latency > 0 {
			fmt.Printf("  Round trip: %s\n", wire.FormatLatency(rec.Latency))
		}
		for _, v := range verrs {
			fmt.Printf("  \033[1;33m%s\033[0m\n", v.Message)
		}
	}

	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
