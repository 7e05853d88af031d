package cmd

import (
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"wsimport/lib/csvimport"
	"wsimport/lib/util/serviceutil"
)

var csvOutput *string
var csvPretty *bool

func init() {
	csvOutput = csvCmd.Flags().String("output", "cards.json", "Destination of the converted dataset.")
	csvPretty = csvCmd.Flags().Bool("pretty", false, "Pretty print the generated JSON.")
	rootCmd.AddCommand(csvCmd)
}

var csvCmd = &cobra.Command{
	Use:   "csv <path or url>",
	Short: "Convert a curated CSV sheet into the dataset format.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bundle, err := csvimport.Load(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("convert csv", err)
		}

		perSeries := map[string]int{}
		for _, card := range bundle.Cards {
			perSeries[card.SeriesId]++
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Series", "Set", "Cards"})
		for _, series := range bundle.Series {
			t.AppendRow(table.Row{series.Name, series.SetCode, perSeries[series.Id]})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if err := writeBundle(bundle, *csvOutput, *csvPretty); err != nil {
			serviceutil.Fatal("write dataset", err)
		}
		slog.Info("wrote dataset", "series", len(bundle.Series), "cards", len(bundle.Cards), "path", *csvOutput)
	},
}
