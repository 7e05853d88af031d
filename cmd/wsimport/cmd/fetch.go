package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"wsimport/lib/configutil"
	"wsimport/lib/pipeline"
	"wsimport/lib/restyutil"
	"wsimport/lib/util/serviceutil"
)

// Config holds the optional wsimport.json5 settings. Flags override it.
type Config struct {
	Sets       []string `json:"sets"`
	Language   string   `json:"language"`
	Output     string   `json:"output"`
	OfflineDir string   `json:"offline_dir"`
	SearchUrl  string   `json:"search_url"`
	ExportUrl  string   `json:"export_url"`
	PageUrl    string   `json:"page_url"`
	UserAgent  string   `json:"user_agent"`
	Pretty     bool     `json:"pretty"`
	RatePerSec float64  `json:"rate_per_sec"`
}

var (
	fetchOutput     *string
	fetchLanguage   *string
	fetchOfflineDir *string
	fetchPretty     *bool
	fetchNoDetails  *bool
	fetchDebugHttp  *bool
)

func init() {
	fetchOutput = fetchCmd.Flags().String("output", "cards.json", "Destination of the aggregated dataset.")
	fetchLanguage = fetchCmd.Flags().String("language", "ja", "Language requested from the search endpoint and detail pages.")
	fetchOfflineDir = fetchCmd.Flags().String("offline-dir", "offline", "Directory containing the curated offline snapshots.")
	fetchPretty = fetchCmd.Flags().Bool("pretty", false, "Pretty print the generated JSON.")
	fetchNoDetails = fetchCmd.Flags().Bool("no-details", false, "Skip card detail page enrichment.")
	fetchDebugHttp = fetchCmd.Flags().Bool("debug-http", false, "Dump every request/response pair to .dev/resty/wsimport.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [set codes...]",
	Short: "Run the acquisition pipeline and write the aggregated dataset.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config](*configFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			serviceutil.Fatal("read config", err)
		}

		output := *fetchOutput
		if !cmd.Flags().Changed("output") && cfg.Output != "" {
			output = cfg.Output
		}
		language := *fetchLanguage
		if !cmd.Flags().Changed("language") && cfg.Language != "" {
			language = cfg.Language
		}
		offlineDir := *fetchOfflineDir
		if !cmd.Flags().Changed("offline-dir") && cfg.OfflineDir != "" {
			offlineDir = cfg.OfflineDir
		}
		pretty := *fetchPretty || cfg.Pretty

		sets := args
		if len(sets) == 0 {
			sets = cfg.Sets
		}
		if len(sets) == 0 {
			sets = []string{"DDD", "SFN"}
		}

		limiter := rate.NewLimiter(2, 2)
		if cfg.RatePerSec > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 2)
		}

		var debug restyutil.InstrumentOutput
		if *fetchDebugHttp {
			// Dumps only fire at debug level.
			LogLevel.Set(slog.LevelDebug)
			out, err := restyutil.NewFilesystemOutput(".dev/resty/wsimport")
			if err != nil {
				serviceutil.Fatal("prepare http debug output", err)
			}
			debug = out
		}

		runner, err := pipeline.NewRunner(pipeline.Options{
			SearchBaseUrl:  cfg.SearchUrl,
			ExportTemplate: cfg.ExportUrl,
			PageBaseUrl:    cfg.PageUrl,
			OfflineDir:     offlineDir,
			Language:       language,
			UserAgent:      cfg.UserAgent,
			DisableDetails: *fetchNoDetails,
			Limiter:        limiter,
			Debug:          debug,
		})
		if err != nil {
			serviceutil.Fatal("initialize pipeline", err)
		}

		bundle, reports, err := runner.Run(cmd.Context(), sets)
		renderFetchSummary(reports)
		if err != nil {
			serviceutil.Fatal("some sets could not be resolved", err)
		}

		if err := writeBundle(bundle, output, pretty); err != nil {
			serviceutil.Fatal("write dataset", err)
		}
		slog.Info("wrote dataset", "series", len(bundle.Series), "cards", len(bundle.Cards), "path", output)
	},
}

func renderFetchSummary(reports []pipeline.CatalogReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Set", "Tier", "Series", "Cards"})

	for _, report := range reports {
		if report.Err != nil {
			t.AppendRow(table.Row{report.SetCode, "failed", report.Err.Error(), 0})
			continue
		}
		t.AppendRow(table.Row{report.SetCode, report.Tier, report.Series.Name, report.Cards})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
