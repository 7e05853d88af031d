// Package official downloads the bulk JSON exports published alongside
// the card list site, one payload per product line.
package official

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"wsimport/lib/jsonutil"
	"wsimport/lib/restyutil"
)

var tracer = otel.Tracer("scrapers/official")

var ErrNoCards = errors.New("no cards could be parsed from official export")

const DefaultExportTemplate = "https://ws-tcg.com/wp/wp-content/cardlist/db/export/pack/%s.json"

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ExportResult carries the raw card records of one export payload plus
// whatever series metadata object the payload embedded.
type ExportResult struct {
	Info  map[string]any
	Cards []any
}

type Client struct {
	Http           *resty.Client
	ExportTemplate string
}

type ClientOptions struct {
	// ExportTemplate is a Sprintf template with one %s verb for the
	// catalog identifier. DefaultExportTemplate when empty.
	ExportTemplate string
	UserAgent      string
	// Limiter paces requests against the live site. Defaults to two
	// requests per second.
	Limiter *rate.Limiter
	// Debug receives request/response dumps while debug logging is
	// enabled. May be nil.
	Debug restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.ExportTemplate == "" {
		opts.ExportTemplate = DefaultExportTemplate
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(2, 2)
	}
	// The bare template is not a parsable URL, probe with a stand-in.
	templateUrl, err := url.Parse(fmt.Sprintf(opts.ExportTemplate, "probe"))
	if err != nil {
		return nil, fmt.Errorf("invalid export template: %w", err)
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(templateUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	limiter := opts.Limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	restyutil.InstrumentClient(client, tracer, opts.Debug)

	return &Client{
		Http:           client,
		ExportTemplate: opts.ExportTemplate,
	}, nil
}

var (
	exportInfoKeys       = []string{"pack", "info", "product", "meta", "header"}
	exportItemKeys       = []string{"data", "cards", "cardList", "list", "items"}
	exportNestedItemKeys = []string{"items", "rows", "list", "data"}
)

// FetchSet downloads and decodes the export payload for one catalog.
// The payload may be a bare card array or an object wrapping the array
// and a metadata object, at various nesting depths.
func (c *Client) FetchSet(ctx context.Context, setCode string) (ExportResult, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSet")
	defer span.End()

	exportUrl := fmt.Sprintf(c.ExportTemplate, url.PathEscape(setCode))
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		Get(exportUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch export")
		return ExportResult{}, fmt.Errorf("fetch %s: %w", exportUrl, err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "export returned an error status")
		return ExportResult{}, fmt.Errorf("http error %d when fetching %s", res.StatusCode(), exportUrl)
	}

	var payload any
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		span.SetStatus(codes.Error, "export payload is not json")
		return ExportResult{}, fmt.Errorf("invalid json payload for %s: %w", setCode, err)
	}

	result, err := parsePayload(payload)
	if err != nil {
		span.SetStatus(codes.Error, "unrecognized export payload shape")
		return ExportResult{}, err
	}
	if len(result.Cards) == 0 {
		span.SetStatus(codes.Error, "no cards in export")
		return ExportResult{}, fmt.Errorf("set %s: %w", setCode, ErrNoCards)
	}
	return result, nil
}

func parsePayload(payload any) (ExportResult, error) {
	switch data := payload.(type) {
	case []any:
		return ExportResult{Info: map[string]any{}, Cards: data}, nil
	case map[string]any:
		info := jsonutil.FirstObject(data, exportInfoKeys...)
		if info == nil {
			info = map[string]any{}
		}
		cards, ok := jsonutil.Items(data, exportItemKeys, exportNestedItemKeys)
		if !ok {
			return ExportResult{}, errors.New("card list not found in official payload")
		}
		return ExportResult{Info: info, Cards: cards}, nil
	default:
		return ExportResult{}, errors.New("unsupported payload type from official export")
	}
}
