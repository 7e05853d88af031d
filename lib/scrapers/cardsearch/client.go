package cardsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"wsimport/lib/jsonutil"
	"wsimport/lib/restyutil"
)

var tracer = otel.Tracer("scrapers/cardsearch")

var (
	ErrNoEndpoint = errors.New("could not determine card search ajax endpoint")
	ErrNoCards    = errors.New("card search returned no cards")
)

const DefaultBaseUrl = "https://ws-tcg.com/cardlist/search/"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxPages caps pagination for backends that never report an end.
const maxPages = 200

// SearchResult carries the raw card records of one catalog together
// with the series metadata hunted from them.
type SearchResult struct {
	Info  map[string]any
	Cards []any
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Config  SearchConfig
}

type ClientOptions struct {
	// BaseUrl of the search landing page. DefaultBaseUrl when empty.
	BaseUrl   string
	UserAgent string
	// Limiter paces requests against the live site. Defaults to two
	// requests per second.
	Limiter *rate.Limiter
	// Debug receives request/response dumps while debug logging is
	// enabled. May be nil.
	Debug restyutil.InstrumentOutput
}

// NewClient fetches the search landing page and reverse engineers the
// AJAX endpoint contract from its markup and scripts.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(2, 2)
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	limiter := opts.Limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	restyutil.InstrumentClient(client, tracer, opts.Debug)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	c.Config, err = c.discoverConfig(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) discoverConfig(ctx context.Context) (SearchConfig, error) {
	ctx, span := tracer.Start(ctx, "client:discoverConfig")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "text/html").
		Get(c.BaseUrl.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch search landing page")
		return SearchConfig{}, fmt.Errorf("fetch search landing page: %w", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "search landing page returned an error status")
		return SearchConfig{}, fmt.Errorf("http error %d when loading %s", res.StatusCode(), c.BaseUrl)
	}

	config, err := DiscoverConfig(c.BaseUrl.String(), res.Body())
	if err != nil {
		span.SetStatus(codes.Error, "failed to reverse engineer search endpoint")
		return SearchConfig{}, err
	}
	return config, nil
}

var (
	searchItemKeys       = []string{"items", "cards", "list", "data", "results"}
	searchNestedItemKeys = []string{"items", "list", "rows"}
	searchTotalKeys      = []string{"total", "total_count", "totalCount", "count"}
)

// FetchCards walks the paginated search endpoint until the backend
// signals the end of the result set, then derives series metadata from
// the first returned record. language defaults to "en".
func (c *Client) FetchCards(ctx context.Context, setCode string, language string) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCards")
	defer span.End()

	if language == "" {
		language = "en"
	}

	var cards []any
	expectedTotal := 0
	totalKnown := false

	for page := 1; page <= maxPages; page++ {
		data, err := c.searchPage(ctx, setCode, language, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search page request failed")
			return SearchResult{}, err
		}

		items, _ := jsonutil.Items(data, searchItemKeys, searchNestedItemKeys)
		if len(items) == 0 {
			break
		}
		cards = append(cards, items...)

		payload, _ := data.(map[string]any)
		if !totalKnown && payload != nil {
			if total, ok := jsonutil.FirstInt(payload, searchTotalKeys...); ok {
				expectedTotal = total
				totalKnown = true
			}
		}
		if totalKnown && len(cards) >= expectedTotal {
			break
		}
		if !hasNextPage(c.Config, payload, page, len(items)) {
			break
		}
	}

	if len(cards) == 0 {
		span.SetStatus(codes.Error, "no cards returned")
		return SearchResult{}, fmt.Errorf("set %s: %w", setCode, ErrNoCards)
	}
	return SearchResult{
		Info:  deriveSeriesInfo(cards, setCode),
		Cards: cards,
	}, nil
}

func (c *Client) searchPage(ctx context.Context, setCode, language string, page int) (any, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("referer", c.Config.BaseUrl).
		SetFormDataFromValues(c.buildPayload(setCode, language, page)).
		Post(c.Config.AjaxUrl)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search request failed with http %d", res.StatusCode())
	}

	var data any
	err = json.Unmarshal(res.Body(), &data)
	if err != nil {
		return nil, fmt.Errorf("invalid json payload from card search: %w", err)
	}
	return data, nil
}

func (c *Client) buildPayload(setCode, language string, page int) url.Values {
	config := c.Config
	payload := url.Values{}

	for _, pair := range config.AdditionalParams {
		payload.Add(pair[0], pair[1])
	}
	if config.Action != "" {
		payload.Add("action", config.Action)
	}
	if config.Nonce != "" {
		payload.Add("nonce", config.Nonce)
	}

	keywordParam := config.KeywordParam
	if keywordParam == "" {
		keywordParam = "keyword"
	}
	payload.Add(keywordParam, "")

	langParam := config.LangParam
	if langParam == "" {
		langParam = "lang"
	}
	payload.Add(langParam, language)

	perPage := config.PerPage
	if perPage == 0 {
		perPage = 50
	}
	if config.PerPageParam != "" {
		payload.Add(config.PerPageParam, strconv.Itoa(perPage))
	} else {
		payload.Add("per_page", strconv.Itoa(perPage))
		payload.Add("limit", strconv.Itoa(perPage))
	}

	payload.Add(config.PageParam, strconv.Itoa(page))

	for _, pair := range packValues(config.PackParam, setCode) {
		payload.Add(pair[0], pair[1])
	}
	return payload
}

// packValues encodes the catalog identifier under every plausible
// parameter name variant, since the exact backend contract is unknown.
// The result is sorted so requests stay deterministic.
func packValues(packParam, setCode string) [][2]string {
	cleaned := strings.TrimSpace(setCode)
	values := map[string]bool{cleaned: true}
	if family, suffix, ok := strings.Cut(cleaned, "/"); ok {
		values[family] = true
		values[suffix] = true
	}

	seen := map[[2]string]bool{}
	for value := range values {
		if value == "" {
			continue
		}
		seen[[2]string{packParam, value}] = true
		if trimmed, ok := strings.CutSuffix(packParam, "[]"); ok {
			seen[[2]string{trimmed, value}] = true
		} else {
			seen[[2]string{packParam + "[]", value}] = true
		}
		seen[[2]string{"pack[]", value}] = true
		seen[[2]string{"set[]", value}] = true
		seen[[2]string{"product[]", value}] = true
	}

	pairs := make([][2]string, 0, len(seen))
	for pair := range seen {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// hasNextPage interprets the assorted pagination hints observed in
// upstream responses, from explicit flags down to page size inference.
func hasNextPage(config SearchConfig, payload map[string]any, page, pageSize int) bool {
	if payload == nil {
		return false
	}

	if next, ok := jsonutil.FirstBool(payload, "hasNext", "has_next", "next"); ok {
		return next
	}

	if pager := jsonutil.FirstObject(payload, "pager"); pager != nil {
		if next, ok := jsonutil.FirstBool(pager, "hasNext", "has_next"); ok {
			return next
		}
		if max, ok := jsonutil.FirstInt(pager, "max", "maxPage", "pageMax", "last", "totalPages"); ok {
			return page < max
		}
	}
	if max, ok := jsonutil.FirstInt(payload, "maxPage", "max_page", "total_pages", "page_max"); ok {
		return page < max
	}

	perPage := config.PerPage
	if perPage == 0 {
		perPage = pageSize
	}
	if pageSize == 0 {
		return false
	}
	if perPage > 0 && pageSize < perPage {
		return false
	}
	return true
}

var (
	seriesNameKeys    = []string{"pack_name", "set_name", "series_name", "product_name", "title", "packTitle"}
	seriesCodeKeys    = []string{"pack_code", "set_code", "series_code", "product_code", "pack"}
	seriesReleaseKeys = []string{"release", "release_date", "releaseDate", "date"}
)

// deriveSeriesInfo hunts series metadata in the first returned record
// and its nested meta object, first non-empty match per field. The
// requested set code seeds setCode and survives when no code field is
// found.
func deriveSeriesInfo(cards []any, setCode string) map[string]any {
	info := map[string]any{"setCode": setCode}

	var first map[string]any
	for _, card := range cards {
		if record, ok := card.(map[string]any); ok {
			first = record
			break
		}
	}
	if first == nil {
		return info
	}

	candidates := []map[string]any{first}
	if meta := jsonutil.FirstObject(first, "meta"); meta != nil {
		candidates = append(candidates, meta)
	}

	var name, code, release string
	for _, candidate := range candidates {
		if name == "" {
			name = jsonutil.FirstString(candidate, seriesNameKeys...)
		}
		if code == "" {
			code = jsonutil.FirstString(candidate, seriesCodeKeys...)
		}
		if release == "" {
			release = jsonutil.FirstString(candidate, seriesReleaseKeys...)
		}
	}
	if name != "" {
		info["name"] = name
	}
	if code != "" {
		info["setCode"] = code
	}
	if release != "" {
		info["release"] = release
	}
	return info
}
