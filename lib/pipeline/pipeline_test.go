package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"wsimport/lib/dataset"
	"wsimport/lib/offline"
)

const pipelineLandingPage = `<!DOCTYPE html>
<html>
<body>
<script>
var cardSearch = {
	endpoint: "%s/wp-admin/admin-ajax.php",
	action: "ws_cardlist_search",
	nonce: "deadbeef01"
};
</script>
</body>
</html>`

const enrichedDetailPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:image" content="//cards.example/images/momo.png">
</head>
<body>
<table>
<tr><th>カード名</th><td>綾瀬 桃「オカルン」</td></tr>
<tr><th>カードテキスト</th><td>【自】 このカードが舞台に置かれた時、あなたは1枚引く。</td></tr>
</table>
</body>
</html>`

const dddSnapshot = `{
  "series": {"id": "ddd-s97", "name": "ダンダダン / DAN DA DAN", "setCode": "DDD/S97", "releaseYear": 2024},
  "cards": [
    {
      "id": "ddd-s97-001", "seriesId": "ddd-s97", "cardCode": "DDD/S97-001",
      "title": "綾瀬 桃", "rarity": "SR", "description": "スカしたところのある女子高生。",
      "color": "RED", "level": 1, "cost": 0,
      "imageUrl": "https://ws-tcg.com/wp/wp-content/images/cardlist/d/ddd_s97/ddd_s97_001.png"
    }
  ]
}`

// newSearchServer serves a landing page whose inline script points the
// endpoint discovery at the same server, then answers the AJAX calls
// with the given handler.
func newSearchServer(t *testing.T, ajax http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/cardlist/search/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, pipelineLandingPage, server.URL)
	})
	mux.HandleFunc("/wp-admin/admin-ajax.php", ajax)
	return server
}

// deadServer answers every request with 404, failing whichever tier it
// backs.
func deadServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.NewServeMux())
	t.Cleanup(server.Close)
	return server
}

func newTestRunner(t *testing.T, opts Options) *Runner {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	runner, err := NewRunner(opts)
	require.NoError(t, err)
	return runner
}

func writeSnapshot(t *testing.T, dir, name, contents string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
}

func TestRunUsesSearchTier(t *testing.T) {
	detailCalls := 0
	detailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detailCalls++
		fmt.Fprint(w, enrichedDetailPage)
	}))
	t.Cleanup(detailServer.Close)

	searchServer := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"hasNext": false,
			"cards": [{"card_no": "DDD/S97-001", "card_name": "綾瀬 桃", "rarity": "RR", "color": "red", "level": "1", "cost": "0"}]
		}`)
	})

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  searchServer.URL + "/cardlist/search/",
		ExportTemplate: deadServer(t).URL + "/export/pack/%s.json",
		PageBaseUrl:    detailServer.URL,
		OfflineDir:     t.TempDir(),
		Language:       "en",
	})

	bundle, reports, err := runner.Run(context.Background(), []string{"DDD/S97"})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	require.NoError(t, reports[0].Err)
	require.Equal(t, TierSearch, reports[0].Tier)
	require.Equal(t, 1, reports[0].Cards)
	require.Equal(t, "ダンダダン / DAN DA DAN", reports[0].Series.Name)

	require.Len(t, bundle.Series, 1)
	require.Equal(t, "ddd-s97", bundle.Series[0].Id)
	require.Equal(t, "DDD/S97", bundle.Series[0].SetCode)

	require.Len(t, bundle.Cards, 1)
	card := bundle.Cards[0]
	require.Equal(t, "ddd-s97-001", card.Id)
	require.Equal(t, "綾瀬 桃", card.Title)
	require.Equal(t, "SR", card.Rarity)
	require.Equal(t, "【自】 このカードが舞台に置かれた時、あなたは1枚引く。", card.Effect)
	require.Equal(t, "https://cards.example/images/momo.png", *card.ImageUrl)
	require.Equal(t, 1, detailCalls)
}

func TestRunFallsBackToExport(t *testing.T) {
	exportServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/export/pack/ZZZ.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"pack": {"title": "Example Pack", "set_code": "ZZZ/W01", "release_date": "2023-04-16"},
			"cards": [{"card_no": "ZZZ/W01-001", "card_name": "Example Card", "rarity": "C"}]
		}`)
	}))
	t.Cleanup(exportServer.Close)

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  deadServer(t).URL + "/cardlist/search/",
		ExportTemplate: exportServer.URL + "/export/pack/%s.json",
		OfflineDir:     t.TempDir(),
		DisableDetails: true,
	})

	bundle, reports, err := runner.Run(context.Background(), []string{"ZZZ"})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	require.Equal(t, TierExport, reports[0].Tier)
	require.Equal(t, 1, reports[0].Cards)

	expected := dataset.Series{
		Id:          "zzz-w01",
		Name:        "Example Pack",
		SetCode:     "ZZZ/W01",
		ReleaseYear: 2023,
	}
	require.Len(t, bundle.Series, 1)
	if diff := cmp.Diff(expected, bundle.Series[0]); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, bundle.Cards, 1)
	require.Equal(t, "zzz-w01-001", bundle.Cards[0].Id)
	require.Equal(
		t,
		"https://ws-tcg.com/wp/wp-content/images/cardlist/z/zzz_w01/zzz_w01_001.png",
		*bundle.Cards[0].ImageUrl,
	)
}

func TestRunFallsBackToOffline(t *testing.T) {
	offlineDir := t.TempDir()
	writeSnapshot(t, offlineDir, "ddd.json", dddSnapshot)

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  deadServer(t).URL + "/cardlist/search/",
		ExportTemplate: deadServer(t).URL + "/export/pack/%s.json",
		OfflineDir:     offlineDir,
		DisableDetails: true,
	})

	bundle, reports, err := runner.Run(context.Background(), []string{" DDD "})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	require.Equal(t, "DDD", reports[0].SetCode)
	require.Equal(t, TierOffline, reports[0].Tier)
	require.Equal(t, 1, reports[0].Cards)
	require.Equal(t, "ダンダダン / DAN DA DAN", reports[0].Series.Name)

	require.Len(t, bundle.Cards, 1)
	require.Equal(t, "ddd-s97-001", bundle.Cards[0].Id)
	require.Equal(t, "SR", bundle.Cards[0].Rarity)
}

func TestRunResolvesCatalogsIndependently(t *testing.T) {
	searchCalls := 0
	searchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searchCalls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(searchServer.Close)

	offlineDir := t.TempDir()
	writeSnapshot(t, offlineDir, "ddd.json", dddSnapshot)

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  searchServer.URL + "/cardlist/search/",
		ExportTemplate: deadServer(t).URL + "/export/pack/%s.json",
		OfflineDir:     offlineDir,
		DisableDetails: true,
	})

	bundle, reports, err := runner.Run(context.Background(), []string{"DDD", "ZZZ"})
	require.ErrorIs(t, err, offline.ErrMissing)
	require.ErrorContains(t, err, "set ZZZ")

	require.Len(t, reports, 2)
	require.NoError(t, reports[0].Err)
	require.Equal(t, TierOffline, reports[0].Tier)
	require.Error(t, reports[1].Err)
	require.Empty(t, reports[1].Tier)

	// The failed catalog does not cost the surviving one its bundle.
	require.Len(t, bundle.Series, 1)
	require.Len(t, bundle.Cards, 1)

	// Endpoint discovery failed for the first catalog and stays failed,
	// the second catalog must not retry the landing page.
	require.Equal(t, 1, searchCalls)
}

func TestRunDetailFailureDisablesEnrichment(t *testing.T) {
	detailCalls := 0
	detailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detailCalls++
		fmt.Fprint(w, `<html><body>お探しのページは見つかりませんでした。</body></html>`)
	}))
	t.Cleanup(detailServer.Close)

	searchServer := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"hasNext": false,
			"cards": [
				{"card_no": "DDD/S97-001", "card_name": "first"},
				{"card_no": "DDD/S97-002", "card_name": "second"}
			]
		}`)
	})

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  searchServer.URL + "/cardlist/search/",
		ExportTemplate: deadServer(t).URL + "/export/pack/%s.json",
		PageBaseUrl:    detailServer.URL,
		OfflineDir:     t.TempDir(),
	})

	bundle, reports, err := runner.Run(context.Background(), []string{"DDD/S97"})
	require.NoError(t, err)

	// The first structural failure disables enrichment, so the second
	// card must not hit the detail page at all.
	require.Equal(t, 1, detailCalls)
	require.False(t, runner.details.Enabled())

	require.Equal(t, TierSearch, reports[0].Tier)
	require.Len(t, bundle.Cards, 2)
	for _, card := range bundle.Cards {
		require.Empty(t, card.Effect)
	}
}

func TestRunDisableDetailsSkipsFetcher(t *testing.T) {
	detailCalls := 0
	detailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detailCalls++
		fmt.Fprint(w, enrichedDetailPage)
	}))
	t.Cleanup(detailServer.Close)

	searchServer := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hasNext": false, "cards": [{"card_no": "DDD/S97-001", "card_name": "first"}]}`)
	})

	runner := newTestRunner(t, Options{
		SearchBaseUrl:  searchServer.URL + "/cardlist/search/",
		ExportTemplate: deadServer(t).URL + "/export/pack/%s.json",
		PageBaseUrl:    detailServer.URL,
		OfflineDir:     t.TempDir(),
		DisableDetails: true,
	})

	_, reports, err := runner.Run(context.Background(), []string{"DDD/S97"})
	require.NoError(t, err)
	require.Equal(t, TierSearch, reports[0].Tier)
	require.Equal(t, 0, detailCalls)
}
