// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ziutektech/tanklink/pkg/capture"
	"github.com/ziutektech/tanklink/pkg/link"
	"github.com/ziutektech/tanklink/pkg/wire"
)

var (
	showAll       bool
	statsInterval int
	pollInterval  int
	capturePath   string
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print, validate and capture results from the tank",
	Long: `Continuously receive results from the tank with statistics.

The tank only speaks when spoken to, so the monitor requests the sensor state
at a fixed interval (--poll, 0 disables it). Every result is validated:
  - Unknown opcodes or statuses
  - Payloads on results that never carry one, or of the wrong length
  - Implausible sensor values (temperature, head distance)

By default only rejected and anomalous results are displayed. Use --show-all
to display every result. --capture writes every received result to a CBOR
capture file that 'tanklink replay' can print later.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all results (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().IntVar(&pollInterval, "poll", 1000, "Sensor state request interval (milliseconds)")
	monitorCmd.Flags().StringVar(&capturePath, "capture", "", "Write received results to a capture file")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", term.IsTerminal(int(os.Stdout.Fd())), "Use terminal UI (false for text mode)")
}

// monitor validates results, keeps statistics and feeds the capture file
type monitor struct {
	session *link.Session
	codec   wire.Codec
	stats   *wire.Statistics
	capture *capture.Writer
	log     *zap.Logger
}

// process accounts for one delivery and returns its validation errors
func (m *monitor) process(d link.Delivery) []wire.ValidationError {
	verrs := m.codec.ValidateResult(d.Result)
	m.stats.Update(d.Result, nil, verrs)
	m.stats.Dropped = m.session.Stats().Dropped
	if m.capture != nil {
		if err := m.capture.Write(capture.FromDelivery(d)); err != nil {
			m.log.Error("capture write failed", zap.Error(err))
		}
	}
	return verrs
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log := logger
	if useTUI {
		log = quietLogger()
	}
	session, ep := newSession(log)
	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("%s: %w", ep, err)
	}
	defer session.Close()

	m := &monitor{
		session: session,
		codec:   session.Codec(),
		stats:   wire.NewStatistics(),
		log:     log,
	}

	if capturePath != "" {
		f, err := os.Create(capturePath)
		if err != nil {
			return fmt.Errorf("failed to create capture %s: %w", capturePath, err)
		}
		defer f.Close()
		w, err := capture.NewWriter(f, ep.String(), cfg.Link.SwapID)
		if err != nil {
			return err
		}
		m.capture = w
		log.Info("capturing", zap.String("path", capturePath), zap.Stringer("session", w.Header().Session))
	}

	if pollInterval > 0 {
		go pollSensors(ctx, session, time.Duration(pollInterval)*time.Millisecond, log)
	}

	if useTUI {
		return runMonitorTUI(ctx, m, ep.String())
	}
	return runMonitorText(ctx, m, ep.String())
}

// pollSensors requests the sensor state until ctx is done
func pollSensors(ctx context.Context, s *link.Session, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Send(wire.NewSensorStateRequest()); err != nil {
				log.Warn("sensor request failed", zap.Error(err))
			}
		}
	}
}

// printValidationErrors prints the anomalies found in a result
func printValidationErrors(codec wire.Codec, d link.Delivery, verrs []wire.ValidationError) {
	r := d.Result
	timestamp := d.At.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s %s id=%016X\n",
		timestamp, wire.FormatOpcode(r.Opcode), wire.FormatStatus(r.Status), r.ID)

	for i, err := range verrs {
		switch err.Type {
		case wire.AnomalyLengthMismatch, wire.AnomalyUnexpectedPayload:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if received, ok := err.Details["received"].(int); ok {
				if expected, ok := err.Details["expected"].(int); ok {
					fmt.Printf("    Length: received=%d, expected=%d\n", received, expected)
				}
			}
		case wire.AnomalyInvalidTemp, wire.AnomalyInvalidDistance:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}
	fmt.Print(codec.FormatPayload(r))
	fmt.Printf("  >>> RESULT FLAGGED <<<\n\n")
}

// printRejected prints a result whose command the tank refused
func printRejected(d link.Delivery) {
	timestamp := d.At.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mREJECTED:\033[0m %s id=%016X status=%s\n",
		timestamp, wire.FormatOpcode(d.Result.Opcode), d.Result.ID, wire.FormatStatus(d.Result.Status))
	if d.Matched {
		fmt.Printf("  Command: %s\n", wire.FormatCommand(d.Command))
	}
	fmt.Println()
}

// runMonitorText prints results as they arrive
func runMonitorText(ctx context.Context, m *monitor, endpoint string) error {
	fmt.Printf("Tanklink - Monitor\n")
	fmt.Printf("Connection: %s\n", endpoint)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All results\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	statsTicker := time.NewTicker(time.Duration(max(statsInterval, 1)) * time.Second)
	defer statsTicker.Stop()

	handle := func(d link.Delivery) {
		verrs := m.process(d)
		switch {
		case len(verrs) > 0:
			printValidationErrors(m.codec, d, verrs)
		case d.Result.Status != wire.StatusSuccess:
			printRejected(d)
		case showAll:
			fmt.Print(m.codec.FormatResult(d.Result, d.At))
			if d.Matched {
				fmt.Printf("  Round trip: %s\n", wire.FormatLatency(d.Latency))
			}
		}
	}

	for {
		wctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		_ = m.session.Wait(wctx)
		cancel()

		m.session.Drain(handle)

		if ctx.Err() != nil {
			fmt.Println()
			fmt.Print(m.stats.String())
			return nil
		}

		select {
		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(m.stats.String())
			st := m.session.Stats()
			fmt.Printf("Link: sent=%d received=%d read errors=%d latency=%s\n",
				st.Sent, st.Received, st.ReadErrors, wire.FormatLatency(st.Latency))
			fmt.Println()
		default:
		}
	}
}

//////////////////////////////////////////////////////////////
// Terminal UI
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type monitorResultMsg struct {
	deliveries []link.Delivery
}

type monitorModel struct {
	mon       *monitor
	endpoint  string
	showAll   bool
	events    eventLog
	sensors   *wire.SensorState
	sensorsAt time.Time
	width     int
	height    int
	quitting  bool
}

func runMonitorTUI(ctx context.Context, m *monitor, endpoint string) error {
	model := monitorModel{
		mon:      m,
		endpoint: endpoint,
		showAll:  showAll,
		events:   newEventLog(100),
		width:    80,
		height:   24,
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Batch deliveries so a chatty link does not flood the program
	go func() {
		for {
			if err := m.session.Wait(ctx); err != nil {
				return
			}
			var batch []link.Delivery
			m.session.Drain(func(d link.Delivery) { batch = append(batch, d) })
			p.Send(monitorResultMsg{deliveries: batch})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "a":
			m.showAll = !m.showAll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.mon.stats.CalculateRates()
		return m, monitorTickCmd()

	case monitorResultMsg:
		for _, d := range msg.deliveries {
			m.handle(d)
		}
	}
	return m, nil
}

func (m *monitorModel) handle(d link.Delivery) {
	verrs := m.mon.process(d)
	r := d.Result
	name := wire.FormatOpcode(r.Opcode)

	if r.Opcode == wire.OpGetSensorState && r.Status == wire.StatusSuccess {
		if st, err := m.mon.codec.DecodeSensorState(r.Payload); err == nil {
			m.sensors = &st
			m.sensorsAt = d.At
		}
	}

	switch {
	case len(verrs) > 0:
		for _, err := range verrs {
			m.events.add(fmt.Sprintf("%s: %s", name, err.Message), true)
		}
	case r.Status != wire.StatusSuccess:
		m.events.add(fmt.Sprintf("%s rejected: %s", name, wire.FormatStatus(r.Status)), true)
	case m.showAll:
		m.events.add(fmt.Sprintf("%s %s id=%016X", name, wire.FormatStatus(r.Status), r.ID), false)
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("TANKLINK - MONITOR"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All results"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'a' toggles mode, 'q' quits", m.endpoint, mode)))
	s.WriteString("\n\n")

	// Statistics
	stats := m.mon.stats
	ls := m.mon.session.Stats()
	var validPercent, errorPercent float64
	errorsTotal := stats.DecodeErrors + stats.Malformed + stats.AnomalousValues + stats.Rejected
	if stats.TotalResults > 0 {
		validPercent = float64(stats.ValidResults) * 100.0 / float64(stats.TotalResults)
		errorPercent = float64(errorsTotal) * 100.0 / float64(stats.TotalResults)
	}

	var content strings.Builder
	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalResults)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidResults, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", errorsTotal, errorPercent)),
	))
	if stats.Rejected > 0 {
		content.WriteString(fmt.Sprintf("%s %s (%s: %d)\n",
			statsLabelStyle.Render("Rejected:"), warningStyle.Render(fmt.Sprintf("%d", stats.Rejected)),
			headerStyle.Render("busy"), stats.Busy,
		))
	}
	if stats.Dropped > 0 {
		content.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Dropped:"), errorStyle.Render(fmt.Sprintf("%d", stats.Dropped)),
		))
	}
	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Result Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f res/s", stats.ResultRate)),
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", ls.Sent)),
		statsLabelStyle.Render("Latency:"), statsValueStyle.Render(wire.FormatLatency(ls.Latency)),
	))
	s.WriteString(boxStyle.Render(content.String()))
	s.WriteString("\n\n")

	if m.sensors != nil {
		s.WriteString(statsLabelStyle.Render("Latest Sensors:"))
		s.WriteString("\n")
		st := m.sensors
		sensorContent := fmt.Sprintf("%s %s   %s %s   %s %s %s %s\n%s %s",
			statsLabelStyle.Render("Head:"), statsValueStyle.Render(fmt.Sprintf("%.0f mm", st.HeadDistanceMM)),
			statsLabelStyle.Render("Temp:"), statsValueStyle.Render(fmt.Sprintf("%.1f°C", st.TemperatureC)),
			statsLabelStyle.Render("Obstacles:"),
			onOff("L", st.Left != 0), onOff("R", st.Right != 0), onOff("B", st.Rear != 0),
			statsLabelStyle.Render("Updated:"), headerStyle.Render(m.sensorsAt.Format("15:04:05.000")),
		)
		s.WriteString(boxStyle.Render(sensorContent))
		s.WriteString("\n\n")
	}

	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(m.events.render("Recent Events:", logHeight, m.width-4))
	return s.String()
}
