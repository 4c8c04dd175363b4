package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/openmined/scriptsync/internal/client/sync"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			entries, err := c.History(limit)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), entries, time.Now())
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	return cmd
}

func renderHistory(w io.Writer, entries []sync.HistoryEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, gray.Render("no sync runs recorded"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "MODE", "STATE", "PLANNED", "OK", "FAILED", "TOOK", "ERROR")

	for _, e := range entries {
		t.Row(
			humanize.RelTime(e.StartedAt, now, "ago", "from now"),
			e.Mode,
			stateStyle(e.State).Render(e.State),
			strconv.Itoa(e.Planned),
			strconv.Itoa(e.Succeeded),
			strconv.Itoa(e.Failed),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			e.Error,
		)
	}
	fmt.Fprintln(w, t.Render())
}
