// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles shared by the full-screen commands
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("10")).
			Padding(0, 1)

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for information
}

// eventLog keeps the most recent entries
type eventLog struct {
	entries []logEntry
	max     int
}

func newEventLog(size int) eventLog {
	return eventLog{entries: make([]logEntry, 0, size), max: size}
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// render draws the newest height entries in a box of the given width
func (l eventLog) render(title string, height, width int) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render(title))
	s.WriteString("\n")

	startIdx := len(l.entries) - height
	if startIdx < 0 {
		startIdx = 0
	}

	var content strings.Builder
	if len(l.entries) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(l.entries); i++ {
			entry := l.entries[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(content.String()))
	return s.String()
}

// onOff renders a toggle indicator
func onOff(label string, on bool) string {
	if on {
		return activeStyle.Render(label)
	}
	return inactiveStyle.Render(label)
}
