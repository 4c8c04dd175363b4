package main

import (
	"errors"
	"fmt"

	"github.com/openmined/scriptsync/internal/client/sync"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	errSyncIncomplete = errors.New("sync incomplete")
	errSyncAborted    = errors.New("sync aborted")
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring the script directory up to date with the origin",
		Long: `Fetch the origin's version document and download every file that is newer than the local copy.

With --full the script directory and the recorded versions are discarded first and everything is
downloaded again. With --interval the command keeps running and syncs incrementally on that period.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			interval, _ := cmd.Flags().GetDuration("interval")
			if !cmd.Flags().Changed("interval") && viper.IsSet("interval") {
				interval = viper.GetDuration("interval")
			}

			mode := sync.ModeIncremental
			if full {
				mode = sync.ModeFull
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if interval > 0 {
				return c.Run(cmd.Context(), mode, interval)
			}

			result, err := c.Synchronize(cmd.Context(), mode)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return syncExitError(result, err)
		},
	}

	cmd.Flags().BoolP("full", "f", false, "Discard local scripts and versions, then download everything")
	cmd.Flags().Duration("interval", 0, "Keep syncing on this period, e.g. 5m")
	return cmd
}

// syncExitError turns a result into the command's error so aborted or incomplete runs exit non-zero
func syncExitError(result *sync.SyncResult, err error) error {
	if err != nil {
		if errors.Is(err, sync.ErrSyncAborted) || errors.Is(err, sync.ErrSyncAlreadyRunning) {
			return fmt.Errorf("%w: %w", errSyncAborted, err)
		}
		return err
	}
	if result != nil && result.State == sync.StatePartiallyCommitted {
		return fmt.Errorf("%w: %d of %d files failed", errSyncIncomplete, result.Failed, result.Planned)
	}
	return nil
}
