// Package pipeline resolves each requested catalog through the tiered
// acquisition chain (search scrape, bulk export, offline snapshot) and
// merges the per-catalog bundles into one dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"wsimport/lib/dataset"
	"wsimport/lib/offline"
	"wsimport/lib/restyutil"
	"wsimport/lib/scrapers/cardpage"
	"wsimport/lib/scrapers/cardsearch"
	"wsimport/lib/scrapers/official"
)

var tracer = otel.Tracer("pipeline")

// Tier names as they appear in run reports and warnings.
const (
	TierSearch  = "search"
	TierExport  = "export"
	TierOffline = "offline"
)

type Options struct {
	// SearchBaseUrl overrides the search landing page origin.
	SearchBaseUrl string
	// ExportTemplate overrides the bulk export URL template.
	ExportTemplate string
	// PageBaseUrl overrides the card detail page origin.
	PageBaseUrl string
	// OfflineDir holds the curated fallback snapshots. Defaults to
	// "offline".
	OfflineDir string
	// Language requested from the search endpoint and detail pages.
	Language  string
	UserAgent string
	// DisableDetails skips detail page enrichment entirely.
	DisableDetails bool
	// Limiter is shared by every live client so one request budget
	// covers the whole run. Each client falls back to its own default
	// when nil.
	Limiter *rate.Limiter
	// Debug receives request/response dumps while debug logging is
	// enabled. May be nil.
	Debug restyutil.InstrumentOutput
}

// CatalogReport records how one requested catalog was resolved. Tier is
// empty and Err non-nil when every tier failed.
type CatalogReport struct {
	SetCode string
	Tier    string
	Series  dataset.Series
	Cards   int
	Err     error
}

// Runner executes the acquisition chain. One Runner serves one run: the
// detail page cache and its disable flag live for exactly that long.
type Runner struct {
	opts    Options
	export  *official.Client
	details *cardpage.Fetcher

	search    *cardsearch.Client
	searchErr error
	searched  bool
}

// NewRunner builds the export client and the detail fetcher up front
// (neither touches the network until used). The search client is built
// lazily because its constructor already performs endpoint discovery
// against the live landing page.
func NewRunner(opts Options) (*Runner, error) {
	if opts.OfflineDir == "" {
		opts.OfflineDir = "offline"
	}

	exportClient, err := official.NewClient(official.ClientOptions{
		ExportTemplate: opts.ExportTemplate,
		UserAgent:      opts.UserAgent,
		Limiter:        opts.Limiter,
		Debug:          opts.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("export client: %w", err)
	}

	runner := &Runner{opts: opts, export: exportClient}
	if !opts.DisableDetails {
		fetcher, err := cardpage.NewFetcher(cardpage.FetcherOptions{
			BaseUrl:   opts.PageBaseUrl,
			UserAgent: opts.UserAgent,
			Limiter:   opts.Limiter,
			Debug:     opts.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("detail fetcher: %w", err)
		}
		runner.details = fetcher
	}
	return runner, nil
}

// Run resolves every requested catalog independently and merges the
// surviving bundles. The reports parallel the requested set codes; the
// returned error joins the failures of catalogs that fell through every
// tier, so a partial run still yields its merged bundle.
func (r *Runner) Run(ctx context.Context, setCodes []string) (dataset.ExportBundle, []CatalogReport, error) {
	ctx, span := tracer.Start(ctx, "runner:Run")
	defer span.End()

	var bundles []dataset.ExportBundle
	var reports []CatalogReport
	var failures []error

	for _, setCode := range setCodes {
		setCode = strings.TrimSpace(setCode)
		if setCode == "" {
			continue
		}

		bundle, tierName, err := r.loadCatalog(ctx, setCode)
		report := CatalogReport{SetCode: setCode, Tier: tierName, Err: err}
		if err != nil {
			failures = append(failures, fmt.Errorf("set %s: %w", setCode, err))
			reports = append(reports, report)
			continue
		}

		if len(bundle.Series) > 0 {
			report.Series = bundle.Series[0]
		}
		report.Cards = len(bundle.Cards)
		reports = append(reports, report)
		bundles = append(bundles, bundle)
	}

	merged := dataset.Merge(bundles...)
	if len(failures) > 0 {
		err := errors.Join(failures...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "some catalogs failed every tier")
		return merged, reports, err
	}
	return merged, reports, nil
}

type tier struct {
	name  string
	fetch func(ctx context.Context, setCode string) (dataset.ExportBundle, error)
}

func (r *Runner) tiers() []tier {
	return []tier{
		{name: TierSearch, fetch: r.fetchSearch},
		{name: TierExport, fetch: r.fetchExport},
		{name: TierOffline, fetch: r.fetchOffline},
	}
}

// loadCatalog walks the tier chain for one catalog, descending on every
// tier failure. Failures before the last tier are demoted to warnings;
// only the last tier's failure is returned.
func (r *Runner) loadCatalog(ctx context.Context, setCode string) (dataset.ExportBundle, string, error) {
	ctx, span := tracer.Start(ctx, "runner:loadCatalog")
	defer span.End()

	tiers := r.tiers()
	var lastErr error
	for i, t := range tiers {
		bundle, err := t.fetch(ctx, setCode)
		if err == nil {
			return bundle, t.name, nil
		}
		lastErr = err
		if i < len(tiers)-1 {
			slog.WarnContext(ctx, "acquisition tier failed", "tier", t.name, "set", setCode, "err", err)
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all acquisition tiers failed")
	return dataset.ExportBundle{}, "", lastErr
}

// searchClient memoizes the search client, discovery failure included: a
// landing page that yielded no endpoint once will not yield one for a
// later catalog in the same run.
func (r *Runner) searchClient(ctx context.Context) (*cardsearch.Client, error) {
	if r.searched {
		return r.search, r.searchErr
	}
	r.searched = true
	r.search, r.searchErr = cardsearch.NewClient(ctx, cardsearch.ClientOptions{
		BaseUrl:   r.opts.SearchBaseUrl,
		UserAgent: r.opts.UserAgent,
		Limiter:   r.opts.Limiter,
		Debug:     r.opts.Debug,
	})
	return r.search, r.searchErr
}

func (r *Runner) fetchSearch(ctx context.Context, setCode string) (dataset.ExportBundle, error) {
	client, err := r.searchClient(ctx)
	if err != nil {
		return dataset.ExportBundle{}, err
	}

	result, err := client.FetchCards(ctx, setCode, r.opts.Language)
	if err != nil {
		return dataset.ExportBundle{}, err
	}

	series := dataset.BuildSeries(result.Info, result.Cards, setCode)
	var cards []dataset.Card
	for _, raw := range result.Cards {
		card := dataset.BuildCard(raw, series, r.lookupDetail(ctx, dataset.CardCode(raw)))
		if card == nil {
			continue
		}
		cards = append(cards, *card)
	}
	if len(cards) == 0 {
		return dataset.ExportBundle{}, fmt.Errorf("set %s: %w", setCode, cardsearch.ErrNoCards)
	}

	return dataset.ExportBundle{Series: []dataset.Series{series}, Cards: cards}, nil
}

// lookupDetail fetches enrichment for one card. Any fetch failure trips
// the fetcher's disable flag, so later cards skip straight past here.
func (r *Runner) lookupDetail(ctx context.Context, cardCode string) *dataset.Detail {
	if r.details == nil || !r.details.Enabled() || cardCode == "" {
		return nil
	}

	details, err := r.details.Fetch(ctx, cardCode, r.opts.Language)
	if err != nil {
		slog.WarnContext(ctx, "detail enrichment disabled for the rest of the run", "card", cardCode, "err", err)
		return nil
	}
	return &dataset.Detail{
		Title:  details.Title,
		Effect: details.Effect,
		Image:  details.ImageUrl,
	}
}

func (r *Runner) fetchExport(ctx context.Context, setCode string) (dataset.ExportBundle, error) {
	result, err := r.export.FetchSet(ctx, setCode)
	if err != nil {
		return dataset.ExportBundle{}, err
	}

	series := dataset.BuildSeries(result.Info, result.Cards, setCode)
	var cards []dataset.Card
	for _, raw := range result.Cards {
		card := dataset.BuildCard(raw, series, nil)
		if card == nil {
			continue
		}
		cards = append(cards, *card)
	}
	if len(cards) == 0 {
		return dataset.ExportBundle{}, fmt.Errorf("set %s: %w", setCode, official.ErrNoCards)
	}

	return dataset.ExportBundle{Series: []dataset.Series{series}, Cards: cards}, nil
}

func (r *Runner) fetchOffline(ctx context.Context, setCode string) (dataset.ExportBundle, error) {
	return offline.Load(r.opts.OfflineDir, setCode)
}
