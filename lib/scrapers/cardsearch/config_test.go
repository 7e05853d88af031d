package cardsearch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const formLandingPage = `<!DOCTYPE html>
<html>
<head><title>カードリスト検索</title></head>
<body>
<form id="cardSearchForm" class="searchForm" action="/cardlist/search/" method="post">
  <input type="hidden" name="search_nonce" value="a1b2c3d4e5">
  <input type="hidden" name="action" value="card_list_search">
  <input type="hidden" name="view" value="text">
  <input type="hidden" name="pack_filter" value="DDD/S97">
  <input type="text" name="keyword" placeholder="カード名">
  <select name="lang_select"><option value="ja">日本語</option></select>
  <select name="per_page_select"><option value="50">50</option></select>
  <input type="text" name="page_no" value="">
</form>
<script>
var searchSettings = {
  url: "/wp/wp-admin/admin-ajax.php",
  action: "other_action",
  nonce: "ffff0000"
};
</script>
</body>
</html>`

func TestDiscoverConfigFromForm(t *testing.T) {
	config, err := DiscoverConfig("https://ws-tcg.com/cardlist/search/", []byte(formLandingPage))
	require.NoError(t, err)

	expected := SearchConfig{
		BaseUrl:      "https://ws-tcg.com/cardlist/search/",
		AjaxUrl:      "https://ws-tcg.com/wp/wp-admin/admin-ajax.php",
		Method:       "POST",
		Action:       "card_list_search",
		Nonce:        "a1b2c3d4e5",
		PackParam:    "pack_filter",
		LangParam:    "lang_select",
		KeywordParam: "keyword",
		PageParam:    "page_no",
		PerPageParam: "per_page_select",
		AdditionalParams: [][2]string{
			{"view", "text"},
			{"pack_filter", "DDD/S97"},
		},
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

const scriptLandingPage = `<!DOCTYPE html>
<html>
<body>
<form id="loginForm" action="/login/">
  <input type="hidden" name="login_nonce" value="not-the-search-nonce">
</form>
<script>
jQuery(function($) {
  var endpoint = "https://ws-tcg.com/wp/wp-admin/admin-ajax.php";
  $.post(endpoint, {
    action: "ws_cardlist_search",
    nonce: "deadbeef01",
    per_page: 30,
    page: 1
  });
});
</script>
</body>
</html>`

func TestDiscoverConfigFromScript(t *testing.T) {
	config, err := DiscoverConfig("https://ws-tcg.com/cardlist/search/", []byte(scriptLandingPage))
	require.NoError(t, err)

	expected := SearchConfig{
		BaseUrl:   "https://ws-tcg.com/cardlist/search/",
		AjaxUrl:   "https://ws-tcg.com/wp/wp-admin/admin-ajax.php",
		Method:    "POST",
		Action:    "ws_cardlist_search",
		Nonce:     "deadbeef01",
		PackParam: "pack[]",
		PageParam: "page",
		PerPage:   30,
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestDiscoverConfigFormWinsOverScript(t *testing.T) {
	// The fixture carries both form markup and a settings script with
	// conflicting action/nonce values.
	config, err := DiscoverConfig("https://ws-tcg.com/cardlist/search/", []byte(formLandingPage))
	require.NoError(t, err)
	require.Equal(t, "card_list_search", config.Action)
	require.Equal(t, "a1b2c3d4e5", config.Nonce)
}

func TestDiscoverConfigResolvesRelativeEndpoint(t *testing.T) {
	page := `<script>var endpoint = "/wp/wp-admin/admin-ajax.php";</script>`
	config, err := DiscoverConfig("https://example.org/cardlist/search/", []byte(page))
	require.NoError(t, err)
	require.Equal(t, "https://example.org/wp/wp-admin/admin-ajax.php", config.AjaxUrl)
}

func TestDiscoverConfigNoEndpoint(t *testing.T) {
	page := `<html><body><p>maintenance</p></body></html>`
	_, err := DiscoverConfig("https://ws-tcg.com/cardlist/search/", []byte(page))
	require.ErrorIs(t, err, ErrNoEndpoint)
}
