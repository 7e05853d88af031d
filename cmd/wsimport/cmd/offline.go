package cmd

import (
	"github.com/spf13/cobra"

	"wsimport/lib/offline"
	"wsimport/lib/util/serviceutil"
)

var offlineRebuildDir *string

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Manage the curated offline snapshots.",
}

var offlineRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate the offline snapshots from the embedded card tables.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := offline.Rebuild(*offlineRebuildDir); err != nil {
			serviceutil.Fatal("rebuild offline snapshots", err)
		}
	},
}

func init() {
	offlineRebuildDir = offlineRebuildCmd.Flags().String("dir", "offline", "Directory to write the snapshots into.")
	offlineCmd.AddCommand(offlineRebuildCmd)
	rootCmd.AddCommand(offlineCmd)
}
