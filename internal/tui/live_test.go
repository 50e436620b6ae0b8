package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelConsumesSamples(t *testing.T) {
	samples := make(chan Sample, 2)
	samples <- Sample{Step: 10, Time: 0.02, Temperature: 300, Kinetic: 12, Potential: -5}
	close(samples)

	m := NewModel("argon", samples)
	msg := m.Init()()
	model, cmd := m.Update(msg)
	m = model.(Model)
	if m.last.Step != 10 {
		t.Fatalf("last step %d, want 10", m.last.Step)
	}
	if cmd == nil {
		t.Fatal("model stopped waiting for samples")
	}

	// Channel closed: the next wait reports completion.
	model, _ = m.Update(cmd())
	m = model.(Model)
	if !m.finished {
		t.Fatal("model did not notice completion")
	}
	if !strings.Contains(m.View(), "run finished") {
		t.Fatal("view does not show completion")
	}
}

func TestModelQuitsOnKey(t *testing.T) {
	m := NewModel("argon", make(chan Sample))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Fatalf("got %v, want quit", msg)
	}
}

func TestAppendCapped(t *testing.T) {
	var hist []float64
	for i := 0; i < historyCapacity+50; i++ {
		hist = appendCapped(hist, float64(i))
	}
	if len(hist) != historyCapacity {
		t.Fatalf("history length %d, want %d", len(hist), historyCapacity)
	}
	if hist[len(hist)-1] != float64(historyCapacity+49) {
		t.Fatalf("newest sample %g", hist[len(hist)-1])
	}
	if hist[0] != 50 {
		t.Fatalf("oldest sample %g, want 50", hist[0])
	}
}
