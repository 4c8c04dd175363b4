package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFetchCmd())
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name>",
		Short: "Download one published file without recording its version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			outcome, err := c.FetchOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printFetched(cmd.OutOrStdout(), outcome.Path, outcome.Bytes)
			return nil
		},
	}
}
