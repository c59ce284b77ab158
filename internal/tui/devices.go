// SPDX-License-Identifier: MIT
// Package tui holds the Bubble Tea front ends: a device browser and a live
// monitor of the running equalizer.
package tui

import (
	"fmt"
	"strings"

	"equalizer/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter  = key.NewBinding(key.WithKeys("enter"))
	keyBack   = key.NewBinding(key.WithKeys("esc"))
	keyToggle = key.NewBinding(key.WithKeys("tab"))
)

// SampleRates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is what the user confirmed on the configuration screen.
type Selection struct {
	InputDevice  int
	OutputDevice int
	SampleRate   float64
}

// DeviceListModel represents the Bubble Tea model for listing audio devices
type DeviceListModel struct {
	fetch func() ([]audio.Device, error)

	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	// Configuration options
	useAsOutput     bool
	sampleRateIndex int
	selection       Selection
	confirmed       bool
}

// NewDeviceListModel creates a model that loads devices with fetch.
// A nil fetch uses audio.HostDevices.
func NewDeviceListModel(fetch func() ([]audio.Device, error)) DeviceListModel {
	if fetch == nil {
		fetch = audio.HostDevices
	}
	return DeviceListModel{
		fetch:        fetch,
		activeScreen: ListScreen,
		selection: Selection{
			InputDevice:  -1,
			OutputDevice: -1,
			SampleRate:   SampleRates[0],
		},
	}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			if quit := m.updateList(msg); quit {
				return m, tea.Quit
			}
		} else if quit := m.updateConfig(msg); quit {
			return m, tea.Quit
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) updateList(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, keyUp):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, keyDown):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, keyEnter):
		if len(m.devices) == 0 {
			return false
		}
		d := m.devices[m.selectedIndex]
		m.activeScreen = ConfigScreen
		m.useAsOutput = d.MaxInputChannels == 0
		m.sampleRateIndex = 0
		for i, rate := range SampleRates {
			if rate == d.DefaultSampleRate {
				m.sampleRateIndex = i
				break
			}
		}
	}
	return false
}

func (m *DeviceListModel) updateConfig(msg tea.KeyMsg) bool {
	d := m.devices[m.selectedIndex]
	switch {
	case key.Matches(msg, keyBack):
		m.activeScreen = ListScreen
	case key.Matches(msg, keyUp):
		if m.sampleRateIndex > 0 {
			m.sampleRateIndex--
		}
	case key.Matches(msg, keyDown):
		if m.sampleRateIndex < len(SampleRates)-1 {
			m.sampleRateIndex++
		}
	case key.Matches(msg, keyToggle):
		if d.MaxInputChannels > 0 && d.MaxOutputChannels > 0 {
			m.useAsOutput = !m.useAsOutput
		}
	case key.Matches(msg, keyEnter):
		if m.useAsOutput {
			m.selection.OutputDevice = d.ID
		} else {
			m.selection.InputDevice = d.ID
		}
		m.selection.SampleRate = SampleRates[m.sampleRateIndex]
		m.confirmed = true
		return true
	}
	return false
}

// Selection returns the confirmed choice. ok is false when the user quit
// without confirming.
func (m DeviceListModel) Selection() (s Selection, ok bool) {
	return m.selection, m.confirmed
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderDeviceConfig())
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Sample Rate • Tab: Input/Output • Enter: Use • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		if device.HostAPI != "" {
			deviceInfo += dimStyle.Render("    "+device.HostAPI) + "\n"
		}

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}
		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDeviceConfig formats the device configuration screen
func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	role := "input"
	if m.useAsOutput {
		role = "output"
	}
	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	fmt.Fprintf(&sb, "Use as: %s\n\n", highlightStyle.Render(role))
	sb.WriteString("Sample Rate:\n")

	for i, rate := range SampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// RunDeviceList runs the device browser and returns the confirmed
// selection, if any.
func RunDeviceList(fetch func() ([]audio.Device, error)) (Selection, bool, error) {
	p := tea.NewProgram(NewDeviceListModel(fetch), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	s, ok := final.(DeviceListModel).Selection()
	return s, ok, nil
}
