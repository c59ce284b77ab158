// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"equalizer/internal/analyzer"
	"equalizer/internal/params"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	monitorInterval = 100 * time.Millisecond
	meterWidth      = 40
	peakGainStep    = 0.5
)

var (
	keyLowCut   = key.NewBinding(key.WithKeys("l"))
	keyPeak     = key.NewBinding(key.WithKeys("p"))
	keyHighCut  = key.NewBinding(key.WithKeys("h"))
	keyAnalyzer = key.NewBinding(key.WithKeys("a"))
	keyGainUp   = key.NewBinding(key.WithKeys("+", "="))
	keyGainDown = key.NewBinding(key.WithKeys("-", "_"))

	labelStyle    = lipgloss.NewStyle().Width(9).Bold(true)
	bypassedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AA4444"))
)

// StatusSource is polled by the monitor. analyzer.Analyzer implements it.
type StatusSource interface {
	Status() analyzer.Status
}

type statusMsg analyzer.Status

// MonitorModel shows the filter settings and per-band levels of a running
// equalizer. Keys write bypass, analyzer and peak-gain changes straight to
// the parameter store.
type MonitorModel struct {
	source StatusSource
	store  *params.Store
	floor  float64

	status analyzer.Status
	meter  progress.Model
	err    error
}

// NewMonitorModel returns a monitor polling source. Band levels are drawn
// from floorDb (empty meter) to 0 dB (full meter).
func NewMonitorModel(source StatusSource, store *params.Store, floorDb float64) MonitorModel {
	return MonitorModel{
		source: source,
		store:  store,
		floor:  floorDb,
		meter: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(meterWidth),
			progress.WithoutPercentage(),
		),
	}
}

func (m MonitorModel) poll() tea.Cmd {
	source := m.source
	return tea.Tick(monitorInterval, func(time.Time) tea.Msg {
		return statusMsg(source.Status())
	})
}

// Init starts polling.
func (m MonitorModel) Init() tea.Cmd {
	return m.poll()
}

// Update handles status polls and key presses.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = analyzer.Status(msg)
		return m, m.poll()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keyLowCut):
			m.err = toggle(m.store, params.IDLowCutBypassed)
		case key.Matches(msg, keyPeak):
			m.err = toggle(m.store, params.IDPeakBypassed)
		case key.Matches(msg, keyHighCut):
			m.err = toggle(m.store, params.IDHighCutBypassed)
		case key.Matches(msg, keyAnalyzer):
			m.err = toggle(m.store, params.IDAnalyzerEnabled)
		case key.Matches(msg, keyGainUp):
			m.err = nudge(m.store, params.IDPeakGain, peakGainStep)
		case key.Matches(msg, keyGainDown):
			m.err = nudge(m.store, params.IDPeakGain, -peakGainStep)
		}
	}
	return m, nil
}

// toggle flips a bool parameter.
func toggle(store *params.Store, id string) error {
	v, err := store.Get(id)
	if err != nil {
		return err
	}
	if v > 0.5 {
		return store.Set(id, 0)
	}
	return store.Set(id, 1)
}

// nudge moves a parameter by delta, stopping at its range.
func nudge(store *params.Store, id string, delta float64) error {
	p, err := store.Lookup(id)
	if err != nil {
		return err
	}
	return store.Set(id, min(max(p.Value()+delta, p.Min), p.Max))
}

// View renders the monitor.
func (m MonitorModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Equalizer Monitor"))
	fmt.Fprintf(&sb, "  %s\n\n", dimStyle.Render(fmt.Sprintf("tick %d", m.status.Ticks)))

	sb.WriteString(m.group("LowCut", params.IDLowCutBypassed, params.IDLowCutFreq, params.IDLowCutSlope))
	sb.WriteString(m.group("Peak", params.IDPeakBypassed, params.IDPeakFreq, params.IDPeakGain, params.IDPeakQuality))
	sb.WriteString(m.group("HighCut", params.IDHighCutBypassed, params.IDHighCutFreq, params.IDHighCutSlope))
	sb.WriteString("\n")

	switch {
	case !m.status.Prepared:
		sb.WriteString(dimStyle.Render("Waiting for audio...") + "\n")
	case !m.status.AnalyzerEnabled:
		sb.WriteString(dimStyle.Render("Analyzer off") + "\n")
	default:
		for _, b := range m.status.Bands {
			fmt.Fprintf(&sb, "%s %s %6.1f dB\n", labelStyle.Render(b.Name), m.meter.ViewAs(m.fraction(b.Level)), b.Level)
		}
	}

	if m.err != nil {
		fmt.Fprintf(&sb, "\n%s\n", bypassedStyle.Render(m.err.Error()))
	}
	sb.WriteString("\n" + infoStyle.Render("l/p/h: Bypass • a: Analyzer • +/-: Peak Gain • q: Quit"))
	return sb.String()
}

func (m MonitorModel) fraction(level float64) float64 {
	if m.floor >= 0 {
		return 0
	}
	return min(max((level-m.floor)/-m.floor, 0), 1)
}

// group renders one filter group: name, its values and the bypass state.
func (m MonitorModel) group(name, bypassID string, ids ...string) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, err := m.store.Lookup(id); err == nil {
			values = append(values, p.Format(p.Value()))
		}
	}
	line := labelStyle.Render(name) + " " + strings.Join(values, "  ")
	if v, _ := m.store.Get(bypassID); v > 0.5 {
		return bypassedStyle.Render(line+"  [bypassed]") + "\n"
	}
	return line + "\n"
}

// RunMonitor blocks until the user quits the monitor.
func RunMonitor(source StatusSource, store *params.Store, floorDb float64) error {
	_, err := tea.NewProgram(NewMonitorModel(source, store, floorDb), tea.WithAltScreen()).Run()
	return err
}
