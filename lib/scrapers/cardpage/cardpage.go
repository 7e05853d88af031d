// Package cardpage scrapes individual card detail pages for fields the
// search and export payloads leave out.
package cardpage

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"wsimport/lib/htmlutil"
	"wsimport/lib/restyutil"
	"wsimport/lib/textutil"
)

var tracer = otel.Tracer("scrapers/cardpage")

var ErrNoData = errors.New("card detail page did not contain parsable data")

const DefaultBaseUrl = "https://ws-tcg.com"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// CardDetails is the metadata scraped from one detail page. Fields the
// page did not yield stay empty.
type CardDetails struct {
	Title    string
	Effect   string
	ImageUrl string
}

type cacheKey struct {
	code     string
	language string
}

// Fetcher downloads card detail pages, memoizing successful lookups per
// (code, language) pair. The first failed lookup of any kind disables
// the handle for the rest of its life: a page that stopped parsing
// means the layout changed and further attempts are equally futile.
type Fetcher struct {
	BaseUrl *url.URL
	Http    *resty.Client

	disabled bool
	cache    map[cacheKey]CardDetails
}

type FetcherOptions struct {
	// BaseUrl of the card list site without a trailing slash.
	// DefaultBaseUrl when empty.
	BaseUrl   string
	UserAgent string
	// Limiter paces requests against the live site. Defaults to two
	// requests per second.
	Limiter *rate.Limiter
	// Debug receives request/response dumps while debug logging is
	// enabled. May be nil.
	Debug restyutil.InstrumentOutput
}

func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(2, 2)
	}
	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
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

	return &Fetcher{
		BaseUrl: baseUrl,
		Http:    client,
		cache:   map[cacheKey]CardDetails{},
	}, nil
}

// Enabled reports whether detail lookups are still worth attempting.
func (f *Fetcher) Enabled() bool {
	return !f.disabled
}

// Disable permanently turns off detail lookups for this handle.
func (f *Fetcher) Disable() {
	f.disabled = true
}

// Fetch downloads and parses one card detail page. Any failure, from
// transport errors to a page none of the extraction patterns recognize,
// disables the handle.
func (f *Fetcher) Fetch(ctx context.Context, cardCode, language string) (CardDetails, error) {
	ctx, span := tracer.Start(ctx, "fetcher:Fetch")
	defer span.End()

	key := cacheKey{code: cardCode, language: language}
	if details, ok := f.cache[key]; ok {
		return details, nil
	}

	pageUrl := BuildPageUrl(f.BaseUrl.String(), cardCode, language)
	res, err := f.Http.R().
		SetContext(ctx).
		SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("referer", f.BaseUrl.String()+"/cardlist/search/").
		Get(pageUrl)
	if err != nil {
		f.disabled = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch card detail page")
		return CardDetails{}, fmt.Errorf("fetch %s: %w", pageUrl, err)
	}
	if res.IsError() {
		f.disabled = true
		span.SetStatus(codes.Error, "card detail page returned an error status")
		return CardDetails{}, fmt.Errorf("http %d when fetching %s", res.StatusCode(), pageUrl)
	}

	page := string(res.Body())
	details := CardDetails{
		Title:    extractTitle(page),
		Effect:   extractEffect(page),
		ImageUrl: extractImageUrl(page),
	}
	if details == (CardDetails{}) {
		f.disabled = true
		span.SetStatus(codes.Error, "no extractable fields")
		return CardDetails{}, fmt.Errorf("%s: %w", pageUrl, ErrNoData)
	}

	f.cache[key] = details
	return details, nil
}

// BuildPageUrl returns the detail page address for a card. Japanese is
// the site default and takes no language suffix.
func BuildPageUrl(baseUrl, cardCode, language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	suffix := ""
	switch lang {
	case "", "ja", "jp", "japanese":
	default:
		suffix = "&l=" + url.QueryEscape(lang)
	}
	return baseUrl + "/cardlist/?cardno=" + escapeCardCode(cardCode) + suffix
}

// escapeCardCode percent encodes a card code, keeping the slashes and
// hyphens codes are built from.
func escapeCardCode(code string) string {
	var b strings.Builder
	for _, c := range []byte(code) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '/' || c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<th[^>]*>\s*カード名\s*</th>\s*<td[^>]*>(.*?)</td>`),
	regexp.MustCompile(`(?is)<div[^>]+class="[^"]*(?:cardDetail__name|cardname|card_name)[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<p[^>]+class="[^"]*(?:cardDetail__name|cardname|card_name)[^"]*"[^>]*>(.*?)</p>`),
	regexp.MustCompile(`(?is)<meta[^>]+property="og:title"[^>]+content="([^"]+)"`),
}

var effectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<th[^>]*>\s*カードテキスト\s*</th>\s*<td[^>]*>(.*?)</td>`),
	regexp.MustCompile(`(?is)<th[^>]*>\s*テキスト\s*</th>\s*<td[^>]*>(.*?)</td>`),
	regexp.MustCompile(`(?is)<div[^>]+class="[^"]*(?:cardDetail__text|cardtext|card_txt|textArea)[^"]*"[^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<section[^>]+class="[^"]*cardText[^"]*"[^>]*>(.*?)</section>`),
	regexp.MustCompile(`(?is)<p[^>]+class="[^"]*(?:cardDetail__text|cardtext|card_txt|textArea)[^"]*"[^>]*>(.*?)</p>`),
}

var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<meta[^>]+property="og:image"[^>]+content="([^"]+)"`),
	regexp.MustCompile(`(?is)<img[^>]+src="([^"]+)"[^>]+class="[^"]*(?:cardImage|card-image|card_img)[^"]*"`),
	regexp.MustCompile(`(?is)<img[^>]+class="[^"]*(?:cardImage|card-image|card_img)[^"]*"[^>]+src="([^"]+)"`),
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func extractTitle(page string) string {
	return textutil.CollapseSpace(firstCleanMatch(titlePatterns, page))
}

func extractEffect(page string) string {
	text := firstCleanMatch(effectPatterns, page)
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r", "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func extractImageUrl(page string) string {
	for _, pattern := range imagePatterns {
		groups := pattern.FindStringSubmatch(page)
		if groups == nil {
			continue
		}
		value := strings.TrimSpace(groups[1])
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "//") {
			return "https:" + value
		}
		return value
	}
	return ""
}

// firstCleanMatch runs the patterns in order and returns the first
// capture that still has content after HTML cleanup.
func firstCleanMatch(patterns []*regexp.Regexp, page string) string {
	for _, pattern := range patterns {
		groups := pattern.FindStringSubmatch(page)
		if groups == nil {
			continue
		}
		if cleaned := htmlutil.CleanFragment(groups[1]); cleaned != "" {
			return cleaned
		}
	}
	return ""
}
