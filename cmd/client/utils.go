package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/openmined/scriptsync/internal/client/sync"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case sync.StateDone.String():
		return green
	case sync.StatePartiallyCommitted.String():
		return yellow
	default:
		return red
	}
}

func printResult(w io.Writer, r *sync.SyncResult) {
	fmt.Fprintf(w, "%s %s sync %s\n",
		stateStyle(r.State.String()).Render(r.State.String()),
		r.Mode,
		gray.Render(r.RunID),
	)
	fmt.Fprintf(w, "  planned %d, fetched %s, failed %s, took %s\n",
		r.Planned,
		green.Render(fmt.Sprint(r.Succeeded)),
		failedCount(r.Failed),
		r.Duration.Round(time.Millisecond),
	)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s %s: %v\n", red.Render("✗"), f.Path, f.Err)
	}
}

func failedCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return red.Render(fmt.Sprint(n))
}

func printFetched(w io.Writer, name string, bytes int64) {
	fmt.Fprintf(w, "%s %s (%s)\n", green.Render("✓"), name, humanize.Bytes(uint64(bytes)))
}
