// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ziutektech/tanklink/pkg/link"
	"github.com/ziutektech/tanklink/pkg/wire"
)

//////////////////////////////////////////////////////////////
// Key Bindings
//////////////////////////////////////////////////////////////

type driveKeyMap struct {
	Forward  key.Binding
	Backward key.Binding
	Left     key.Binding
	Right    key.Binding
	Stop     key.Binding
	Faster   key.Binding
	Slower   key.Binding
	HeadL    key.Binding
	HeadR    key.Binding
	Front    key.Binding
	Rear     key.Binding
	LeftL    key.Binding
	RightL   key.Binding
	Buzzer   key.Binding
	Sensors  key.Binding
	Text     key.Binding
	Autorun  key.Binding
	Reset    key.Binding
	Quit     key.Binding
}

func newDriveKeyMap() driveKeyMap {
	return driveKeyMap{
		Forward:  key.NewBinding(key.WithKeys("w", "up"), key.WithHelp("w/↑", "forward")),
		Backward: key.NewBinding(key.WithKeys("s", "down"), key.WithHelp("s/↓", "backward")),
		Left:     key.NewBinding(key.WithKeys("a", "left"), key.WithHelp("a/←", "left")),
		Right:    key.NewBinding(key.WithKeys("d", "right"), key.WithHelp("d/→", "right")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Faster:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		HeadL:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "head left")),
		HeadR:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "head right")),
		Front:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "front light")),
		Rear:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "rear light")),
		LeftL:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "left light")),
		RightL:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "right light")),
		Buzzer:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "buzzer")),
		Sensors:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "sensors")),
		Text:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "text")),
		Autorun:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "autorun")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Quit:     key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k driveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Forward, k.Backward, k.Left, k.Right, k.Stop, k.Sensors, k.Quit}
}

func (k driveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Forward, k.Backward, k.Left, k.Right, k.Stop, k.Faster, k.Slower},
		{k.HeadL, k.HeadR, k.Front, k.Rear, k.LeftL, k.RightL},
		{k.Buzzer, k.Sensors, k.Text, k.Autorun, k.Reset, k.Quit},
	}
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

const (
	speedStep = 25
	headStep  = 15
)

type driveTickMsg time.Time

// driveResultMsg is a batch of deliveries from the session
type driveResultMsg []link.Delivery

type reconnectMsg struct{}

type reconnectedMsg struct {
	err error
}

type driveModel struct {
	session  *link.Session
	codec    wire.Codec
	endpoint string
	keys     driveKeyMap
	help     help.Model
	text     textinput.Model
	typing   bool

	stats  *wire.Statistics
	events eventLog

	speed   uint8
	moving  wire.Direction
	engine  bool
	head    int
	lights  map[wire.Light]bool
	buzzer  bool
	autorun bool
	sensors *wire.SensorState

	reconnectDelay time.Duration
	reconnecting   bool
	width          int
	height         int
	quitting       bool
}

func initialDriveModel(s *link.Session, endpoint string, speed uint8) driveModel {
	ti := textinput.New()
	ti.Placeholder = "hello"
	ti.CharLimit = wire.MaxArgs
	ti.Width = wire.MaxArgs + 2

	return driveModel{
		session:  s,
		codec:    s.Codec(),
		endpoint: endpoint,
		keys:     newDriveKeyMap(),
		help:     help.New(),
		text:     ti,
		stats:    wire.NewStatistics(),
		events:   newEventLog(100),
		speed:    speed,
		lights:   make(map[wire.Light]bool),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m driveModel) Init() tea.Cmd {
	return driveTickCmd()
}

func driveTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return driveTickMsg(t)
	})
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.typing {
			return m.handleTextKey(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case driveTickMsg:
		m.stats.CalculateRates()
		return m, driveTickCmd()

	case driveResultMsg:
		wasReconnecting := m.reconnecting
		for _, d := range msg {
			m.processDelivery(d)
		}
		if m.reconnecting && !wasReconnecting {
			return m, tea.Tick(m.reconnectDelay, func(time.Time) tea.Msg { return reconnectMsg{} })
		}

	case reconnectMsg:
		return m, m.reconnect()

	case reconnectedMsg:
		m.reconnecting = false
		if msg.err != nil {
			m.events.add(fmt.Sprintf("Reconnect failed: %v", msg.err), true)
		} else {
			m.events.add("Reconnected to "+m.endpoint, false)
		}
	}
	return m, nil
}

func (m *driveModel) handleTextKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.send(wire.NewPrintTextCommand(m.text.Value()))
		m.text.SetValue("")
		m.text.Blur()
		m.typing = false
		return m, nil
	case "esc":
		m.text.Blur()
		m.typing = false
		return m, nil
	}
	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	return m, cmd
}

func (m *driveModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Forward):
		m.move(wire.DirForward)
	case key.Matches(msg, m.keys.Backward):
		m.move(wire.DirBackward)
	case key.Matches(msg, m.keys.Left):
		m.move(wire.DirLeft)
	case key.Matches(msg, m.keys.Right):
		m.move(wire.DirRight)
	case key.Matches(msg, m.keys.Stop):
		m.send(wire.NewStopCommand())
	case key.Matches(msg, m.keys.Faster):
		m.changeSpeed(speedStep)
	case key.Matches(msg, m.keys.Slower):
		m.changeSpeed(-speedStep)
	case key.Matches(msg, m.keys.HeadL):
		m.send(wire.NewHeadSensorCommand(min(m.head+headStep, 90)))
	case key.Matches(msg, m.keys.HeadR):
		m.send(wire.NewHeadSensorCommand(max(m.head-headStep, -90)))
	case key.Matches(msg, m.keys.Front):
		m.toggleLight(wire.LightFront)
	case key.Matches(msg, m.keys.Rear):
		m.toggleLight(wire.LightRear)
	case key.Matches(msg, m.keys.LeftL):
		m.toggleLight(wire.LightLeft)
	case key.Matches(msg, m.keys.RightL):
		m.toggleLight(wire.LightRight)
	case key.Matches(msg, m.keys.Buzzer):
		m.send(wire.NewBuzzerCommand(level(!m.buzzer)))
	case key.Matches(msg, m.keys.Sensors):
		m.send(wire.NewSensorStateRequest())
	case key.Matches(msg, m.keys.Text):
		m.typing = true
		return m, m.text.Focus()
	case key.Matches(msg, m.keys.Autorun):
		m.send(wire.NewAutorunCommand(!m.autorun))
	case key.Matches(msg, m.keys.Reset):
		m.send(wire.NewResetCommand())
	case msg.String() == "?":
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func level(on bool) uint8 {
	if on {
		return wire.LevelOn
	}
	return wire.LevelOff
}

func (m *driveModel) send(c wire.Command) {
	if m.reconnecting {
		m.events.add("Reconnecting, command dropped", true)
		return
	}
	if _, err := m.session.Send(c); err != nil {
		m.events.add(fmt.Sprintf("Send %s failed: %v", wire.FormatOpcode(c.Opcode), err), true)
	}
}

func (m *driveModel) move(dir wire.Direction) {
	m.send(wire.NewMoveCommand(dir, m.speed))
}

func (m *driveModel) changeSpeed(delta int) {
	speed := min(max(int(m.speed)+delta, 0), 255)
	m.speed = uint8(speed)
	// Re-send only while the engine runs so the new speed applies immediately
	if m.engine {
		m.send(wire.NewMoveCommand(wire.DirCurrent, m.speed))
	}
}

func (m *driveModel) toggleLight(l wire.Light) {
	m.send(wire.NewLightCommand(l, level(!m.lights[l])))
}

func (m *driveModel) reconnect() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return reconnectedMsg{err: s.Reconnect(ctx)}
	}
}

//////////////////////////////////////////////////////////////
// Result Processing
//////////////////////////////////////////////////////////////

func (m *driveModel) processDelivery(d link.Delivery) {
	r := d.Result
	verrs := m.codec.ValidateResult(r)
	m.stats.Update(r, nil, verrs)
	m.stats.Dropped = m.session.Stats().Dropped

	for _, err := range verrs {
		m.events.add(fmt.Sprintf("%s: %s", wire.FormatOpcode(r.Opcode), err.Message), true)
	}
	if r.Status != wire.StatusSuccess {
		m.events.add(fmt.Sprintf("%s rejected: %s", wire.FormatOpcode(r.Opcode), wire.FormatStatus(r.Status)), true)
		return
	}
	if !d.Matched {
		m.events.add(fmt.Sprintf("Unexpected %s result id=%016X", wire.FormatOpcode(r.Opcode), r.ID), true)
		return
	}

	args := d.Command.Arguments()
	switch r.Opcode {
	case wire.OpMove:
		m.engine = true
		if dir := wire.Direction(args[0]); dir != wire.DirCurrent {
			m.moving = dir
		}
	case wire.OpStop:
		m.engine = false
	case wire.OpPrintText:
		m.events.add(fmt.Sprintf("Display: %q", string(args)), false)
	case wire.OpGetSensorState:
		st, err := m.codec.DecodeSensorState(r.Payload)
		if err != nil {
			m.events.add(err.Error(), true)
			return
		}
		m.sensors = &st
	case wire.OpMoveHeadSensor:
		m.head = int(args[0]) - 90
	case wire.OpConfigureLight:
		m.lights[wire.Light(args[0])] = args[1] != wire.LevelOff
	case wire.OpConfigureBuzz:
		m.buzzer = args[0] != wire.LevelOff
	case wire.OpAutorun:
		m.autorun = args[0] != 0
		if !m.autorun {
			m.engine = false
		}
	case wire.OpReset:
		m.events.add("Tank reset, reconnecting", false)
		m.engine = false
		m.autorun = false
		m.buzzer = false
		m.head = 0
		m.lights = make(map[wire.Light]bool)
		m.reconnecting = true
	}
}

//////////////////////////////////////////////////////////////
// View Rendering
//////////////////////////////////////////////////////////////

func (m driveModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("TANKLINK - DRIVE"))
	s.WriteString("\n")
	status := m.endpoint
	if m.reconnecting {
		status += " | " + warningStyle.Render("reconnecting")
	}
	s.WriteString(headerStyle.Render(status))
	s.WriteString("\n\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.renderControls()),
		" ",
		boxStyle.Render(m.renderSensors()),
	)
	s.WriteString(panels)
	s.WriteString("\n")
	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n")

	if m.typing {
		s.WriteString(statsLabelStyle.Render("Text: "))
		s.WriteString(m.text.View())
		s.WriteString(headerStyle.Render("  (enter sends, esc cancels)"))
		s.WriteString("\n")
	}

	logHeight := m.height - 20
	if logHeight < 4 {
		logHeight = 4
	}
	s.WriteString(m.events.render("Recent Events:", logHeight, m.width-4))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m driveModel) renderControls() string {
	var c strings.Builder
	engine := "stopped"
	if m.engine {
		engine = wire.FormatDirection(m.moving)
	}
	c.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Engine:"), statsValueStyle.Render(engine)))
	c.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Speed: "), statsValueStyle.Render(fmt.Sprintf("%d", m.speed))))
	c.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Head:  "), statsValueStyle.Render(fmt.Sprintf("%+d°", m.head))))
	c.WriteString(fmt.Sprintf("%s %s %s %s %s\n", statsLabelStyle.Render("Lights:"),
		onOff("F", m.lights[wire.LightFront]),
		onOff("B", m.lights[wire.LightRear]),
		onOff("L", m.lights[wire.LightLeft]),
		onOff("R", m.lights[wire.LightRight]),
	))
	c.WriteString(fmt.Sprintf("%s %s %s", statsLabelStyle.Render("Other: "),
		onOff("Buzzer", m.buzzer),
		onOff("Autorun", m.autorun),
	))
	return c.String()
}

func (m driveModel) renderSensors() string {
	if m.sensors == nil {
		return headerStyle.Render("No sensor data\n(press p)")
	}
	st := m.sensors
	distance := statsValueStyle.Render(fmt.Sprintf("%.0f mm", st.HeadDistanceMM))
	if st.HeadDistanceMM < 200 {
		distance = errorStyle.Render(fmt.Sprintf("%.0f mm", st.HeadDistanceMM))
	}
	return fmt.Sprintf("%s %s\n%s %s\n%s %s %s %s",
		statsLabelStyle.Render("Distance:"), distance,
		statsLabelStyle.Render("Temp:    "), statsValueStyle.Render(fmt.Sprintf("%.1f°C", st.TemperatureC)),
		statsLabelStyle.Render("Obstacle:"),
		onOff("L", st.Left != 0), onOff("R", st.Right != 0), onOff("B", st.Rear != 0),
	)
}

func (m driveModel) renderStatisticsBar() string {
	ls := m.session.Stats()
	errorsTotal := m.stats.DecodeErrors + m.stats.Malformed + m.stats.AnomalousValues + m.stats.Rejected
	errors := statsValueStyle.Render("0")
	if errorsTotal > 0 {
		errors = errorStyle.Render(fmt.Sprintf("%d", errorsTotal))
	}
	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", ls.Sent)),
		statsLabelStyle.Render("Results:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalResults)),
		statsLabelStyle.Render("Errors:"), errors,
		statsLabelStyle.Render("Dropped:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Dropped)),
		statsLabelStyle.Render("Latency:"), statsValueStyle.Render(wire.FormatLatency(ls.Latency)),
	)
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return boxStyle.Width(width).Render(content)
}
