package main

import (
	"github.com/spf13/cobra"

	"github.com/paritytech/revive-sub000/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return version.Print(cmd.OutOrStdout())
	},
}
