package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRender(t *testing.T) {
	out := render([]float64{12.5, 8.0, 95})

	if got := strings.Count(out, "\n"); got != 3 {
		t.Fatalf("render produced %d lines, want 3", got)
	}
	for _, want := range []string{"cpu0", "cpu1", "cpu2", "12.5%", "8.0%", "95.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestBarWidth(t *testing.T) {
	tests := []float64{-5, 0, 33.3, 100, 250}
	for _, pct := range tests {
		if got := lipgloss.Width(bar(pct)); got != barWidth {
			t.Errorf("bar(%v) width = %d, want %d", pct, got, barWidth)
		}
	}
}

func TestBarFill(t *testing.T) {
	if got := strings.Count(bar(50), "█"); got != barWidth/2 {
		t.Errorf("bar(50) filled %d cells, want %d", got, barWidth/2)
	}
	if strings.Contains(bar(0), "█") {
		t.Error("bar(0) should be empty")
	}
	if strings.Contains(bar(100), "░") {
		t.Error("bar(100) should be full")
	}
}
