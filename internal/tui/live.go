// Package tui renders a live terminal view of a running simulation:
// current step, energies and thermostat state on the left, scrolling
// temperature and energy traces on the right.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const historyCapacity = 400

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(38)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// Sample is one report-interval snapshot pushed by the runner.
type Sample struct {
	Step          int
	Time          float64
	Kinetic       float64
	Potential     float64
	Temperature   float64
	HeatBath      float64
	ShowsHeatBath bool
}

type sampleMsg Sample

type doneMsg struct{}

// Model is the bubbletea model for the live view. Samples arrive on a
// channel owned by the simulation goroutine; closing the channel marks
// the run finished.
type Model struct {
	title   string
	samples <-chan Sample

	last        Sample
	temperature []float64
	energy      []float64
	finished    bool
	width       int
}

// NewModel creates a live view fed by the samples channel.
func NewModel(title string, samples <-chan Sample) Model {
	return Model{
		title:       title,
		samples:     samples,
		temperature: make([]float64, 0, historyCapacity),
		energy:      make([]float64, 0, historyCapacity),
		width:       100,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitForSample()
}

func (m Model) waitForSample() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.samples
		if !ok {
			return doneMsg{}
		}
		return sampleMsg(s)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case sampleMsg:
		m.last = Sample(msg)
		m.temperature = appendCapped(m.temperature, m.last.Temperature)
		m.energy = appendCapped(m.energy, m.last.Kinetic+m.last.Potential)
		return m, m.waitForSample()
	case doneMsg:
		m.finished = true
	}
	return m, nil
}

func appendCapped(hist []float64, v float64) []float64 {
	if len(hist) == historyCapacity {
		copy(hist, hist[1:])
		hist = hist[:historyCapacity-1]
	}
	return append(hist, v)
}

// View implements tea.Model.
func (m Model) View() string {
	header := headerStyle.Render("mdsim · " + m.title)

	stats := fmt.Sprintf("%s%s\n%s%s\n%s%s\n%s%s\n%s%s",
		labelStyle.Render("step"), valueStyle.Render(fmt.Sprintf("%d", m.last.Step)),
		labelStyle.Render("time"), valueStyle.Render(fmt.Sprintf("%.4f ps", m.last.Time)),
		labelStyle.Render("temperature"), valueStyle.Render(fmt.Sprintf("%.1f K", m.last.Temperature)),
		labelStyle.Render("kinetic"), valueStyle.Render(fmt.Sprintf("%.2f kJ/mol", m.last.Kinetic)),
		labelStyle.Render("potential"), valueStyle.Render(fmt.Sprintf("%.2f kJ/mol", m.last.Potential)),
	)
	if m.last.ShowsHeatBath {
		stats += fmt.Sprintf("\n%s%s",
			labelStyle.Render("heat bath"), valueStyle.Render(fmt.Sprintf("%.3f kJ/mol", m.last.HeatBath)))
	}
	if m.finished {
		stats += "\n\n" + doneStyle.Render("run finished")
	}

	graphWidth := m.width - 48
	if graphWidth < 20 {
		graphWidth = 20
	}
	graphs := ""
	if len(m.temperature) > 1 {
		graphs = graphStyle.Render(
			asciigraph.Plot(m.temperature,
				asciigraph.Height(8), asciigraph.Width(graphWidth),
				asciigraph.Caption("temperature (K)")) +
				"\n\n" +
				asciigraph.Plot(m.energy,
					asciigraph.Height(8), asciigraph.Width(graphWidth),
					asciigraph.Caption("total energy (kJ/mol)")))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, statsStyle.Render(stats), graphs)
	return header + "\n" + body + helpStyle.Render("\nq to quit")
}
