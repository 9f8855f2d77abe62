package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/cpudash/cpudash/internal/client"
)

const barWidth = 40

var (
	labelStyle = lipgloss.NewStyle().Width(7).Foreground(lipgloss.Color("#81A1C1"))
	lowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C"))
	midStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B"))
	highStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B4252"))
	pctStyle   = lipgloss.NewStyle().Width(7).Align(lipgloss.Right)
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8799/realtime/cpus", "Realtime CPU feed of a cpudash server")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.NewWSClient(*wsURL)
	c.OnConnect = func() { log.Printf("connected to %s", *wsURL) }

	lines := 0
	err := c.Listen(ctx, func(cpus []float64) {
		// Redraw in place: move the cursor back over the previous frame.
		if lines > 0 {
			fmt.Printf("\x1b[%dA", lines)
		}
		out := render(cpus)
		fmt.Print(out)
		lines = strings.Count(out, "\n")
	})
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func render(cpus []float64) string {
	var b strings.Builder
	for i, pct := range cpus {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(fmt.Sprintf("cpu%d", i)),
			bar(pct),
			pctStyle.Render(fmt.Sprintf("%.1f%%", pct)),
		))
		b.WriteString("\x1b[K\n")
	}
	return b.String()
}

func bar(pct float64) string {
	pct = max(0, min(pct, 100))
	filled := int(pct / 100 * barWidth)

	style := lowStyle
	switch {
	case pct >= 80:
		style = highStyle
	case pct >= 50:
		style = midStyle
	}
	return style.Render(strings.Repeat("█", filled)) + trackStyle.Render(strings.Repeat("░", barWidth-filled))
}
