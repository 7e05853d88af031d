package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// LogLevel backs the slog handler installed in main. The verbose flag
// raises it to debug before any command runs.
var LogLevel = new(slog.LevelVar)

var verbose *bool
var configFile *string

var rootCmd = &cobra.Command{
	Use:   "wsimport",
	Short: "wsimport acquires Weiss Schwarz card data and produces the app's cards.json dataset.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *verbose {
			LogLevel.Set(slog.LevelDebug)
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	configFile = rootCmd.PersistentFlags().String("config", "wsimport.json5", "Path to the configuration file.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
