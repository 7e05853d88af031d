package cardpage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBuildPageUrl(t *testing.T) {
	cases := []struct {
		code     string
		language string
		expected string
	}{
		{
			code:     "DDD/S97-001",
			language: "ja",
			expected: "https://ws-tcg.com/cardlist/?cardno=DDD/S97-001",
		},
		{
			code:     "DDD/S97-001",
			language: "",
			expected: "https://ws-tcg.com/cardlist/?cardno=DDD/S97-001",
		},
		{
			code:     "DDD/S97-001",
			language: " JP ",
			expected: "https://ws-tcg.com/cardlist/?cardno=DDD/S97-001",
		},
		{
			code:     "SFN/S108-050",
			language: "en",
			expected: "https://ws-tcg.com/cardlist/?cardno=SFN/S108-050&l=en",
		},
		{
			code:     "DDD/S97-001+",
			language: "en",
			expected: "https://ws-tcg.com/cardlist/?cardno=DDD/S97-001%2B&l=en",
		},
	}
	for _, test := range cases {
		actual := BuildPageUrl("https://ws-tcg.com", test.code, test.language)
		require.Equal(t, test.expected, actual)
	}
}

const detailPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="fallback title">
<meta property="og:image" content="//ws-tcg.com/wp/wp-content/images/cardlist/d/ddd_s97/ddd_s97_001.png">
</head>
<body>
<table>
<tr><th>カード名</th><td>綾瀬 桃<br>「オカルン」</td></tr>
<tr><th>カードテキスト</th><td>【自】 このカードが手札から舞台に置かれた時、あなたは1枚引く。<br><br>【起】 <span>集中</span></td></tr>
</table>
</body>
</html>`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher, err := NewFetcher(FetcherOptions{
		BaseUrl: server.URL,
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})
	require.NoError(t, err)
	return fetcher, server
}

func TestFetchExtractsFields(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cardno"); got != "DDD/S97-001" {
			t.Errorf("unexpected cardno %q", got)
		}
		fmt.Fprint(w, detailPage)
	})

	details, err := fetcher.Fetch(context.Background(), "DDD/S97-001", "ja")
	require.NoError(t, err)

	expected := CardDetails{
		Title:    "綾瀬 桃 「オカルン」",
		Effect:   "【自】 このカードが手札から舞台に置かれた時、あなたは1枚引く。\n【起】 集中",
		ImageUrl: "https://ws-tcg.com/wp/wp-content/images/cardlist/d/ddd_s97/ddd_s97_001.png",
	}
	if diff := cmp.Diff(expected, details); diff != "" {
		t.Fatal(diff)
	}
	require.True(t, fetcher.Enabled())
}

func TestFetchFallsBackToMetaTags(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="オカルン">
<meta property="og:image" content="https://ws-tcg.com/img/ddd_s97_001.png">
</head><body></body></html>`
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})

	details, err := fetcher.Fetch(context.Background(), "DDD/S97-001", "ja")
	require.NoError(t, err)
	require.Equal(t, "オカルン", details.Title)
	require.Equal(t, "", details.Effect)
	require.Equal(t, "https://ws-tcg.com/img/ddd_s97_001.png", details.ImageUrl)
}

func TestFetchMemoizes(t *testing.T) {
	requests := 0
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, detailPage)
	})

	ctx := context.Background()
	first, err := fetcher.Fetch(ctx, "DDD/S97-001", "ja")
	require.NoError(t, err)
	second, err := fetcher.Fetch(ctx, "DDD/S97-001", "ja")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, requests)

	// A different language is a different page.
	_, err = fetcher.Fetch(ctx, "DDD/S97-001", "en")
	require.NoError(t, err)
	require.Equal(t, 2, requests)
}

func TestFetchDisablesOnUnparsablePage(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>under construction</p></body></html>`)
	})

	_, err := fetcher.Fetch(context.Background(), "DDD/S97-001", "ja")
	require.ErrorIs(t, err, ErrNoData)
	require.False(t, fetcher.Enabled())
}

func TestFetchDisablesOnHttpError(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := fetcher.Fetch(context.Background(), "DDD/S97-001", "ja")
	require.ErrorContains(t, err, "http 404")
	require.False(t, fetcher.Enabled())
}

func TestDisable(t *testing.T) {
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage)
	})

	require.True(t, fetcher.Enabled())
	fetcher.Disable()
	require.False(t, fetcher.Enabled())
}
