package cardsearch

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"wsimport/lib/htmlutil"
	"wsimport/lib/textutil"
)

// SearchConfig is the reverse-engineered contract of the card search
// AJAX endpoint, assembled from the landing page's form markup and
// inline scripts.
type SearchConfig struct {
	BaseUrl          string
	AjaxUrl          string
	Method           string
	Action           string
	Nonce            string
	PackParam        string
	LangParam        string
	KeywordParam     string
	PageParam        string
	PerPageParam     string
	PerPage          int
	AdditionalParams [][2]string
}

// DiscoverConfig derives the endpoint contract from the search landing
// page. Values found in form markup win over script inference, and the
// endpoint URL is resolved against baseUrl when the page only embeds a
// path.
func DiscoverConfig(baseUrl string, page []byte) (SearchConfig, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return SearchConfig{}, err
	}

	var d discovery
	d.scanForms(doc)
	d.scanScripts(doc)
	if d.ajaxUrl == "" {
		return SearchConfig{}, ErrNoEndpoint
	}
	return d.toConfig(baseUrl), nil
}

type discovery struct {
	ajaxUrl      string
	action       string
	nonce        string
	packParam    string
	langParam    string
	keywordParam string
	pageParam    string
	perPageParam string
	perPage      int
	additional   [][2]string
}

// scanForms walks every form that looks like the card search (id/class
// mentioning "search" or an action under the card list) and sniffs its
// inputs and selects in document order, first discovery per field wins.
func (d *discovery) scanForms(doc *goquery.Document) {
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		identifier := form.AttrOr("id", "") + " " + form.AttrOr("class", "")
		action := form.AttrOr("action", "")
		if !textutil.ContainsFold(identifier, "search") && !strings.Contains(action, "cardlist") {
			return
		}
		form.Find("input, select").Each(func(_ int, el *goquery.Selection) {
			switch goquery.NodeName(el) {
			case "input":
				d.scanInput(el)
			case "select":
				d.scanSelect(el)
			}
		})
	})
}

func (d *discovery) scanInput(input *goquery.Selection) {
	name := input.AttrOr("name", "")
	if name == "" {
		return
	}
	value := input.AttrOr("value", "")
	inputType := strings.ToLower(input.AttrOr("type", "text"))

	if inputType == "hidden" && value != "" {
		if strings.Contains(name, "nonce") && d.nonce == "" {
			d.nonce = value
			return
		}
		if name == "action" && d.action == "" {
			d.action = value
			return
		}
		// Unrecognized hidden fields are replayed verbatim on every
		// request and still participate in the sniffing below.
		d.additional = append(d.additional, [2]string{name, value})
	}

	if (strings.Contains(name, "pack") || strings.Contains(name, "series")) &&
		strings.Contains(value, "/") && d.packParam == "" {
		d.packParam = name
	}
	if strings.Contains(name, "lang") && d.langParam == "" {
		d.langParam = name
	}
	if strings.Contains(name, "keyword") && d.keywordParam == "" {
		d.keywordParam = name
	}
	if isPerPageName(name) && d.perPageParam == "" {
		d.perPageParam = name
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			d.perPage = n
		}
	}
	// "per_page" contains "page", so the page slot only takes names that
	// are not already claimed as a page-size parameter.
	if strings.Contains(name, "page") && !isPerPageName(name) && d.pageParam == "" {
		d.pageParam = name
	}
}

func (d *discovery) scanSelect(sel *goquery.Selection) {
	name := sel.AttrOr("name", "")
	if name == "" {
		return
	}
	if strings.Contains(name, "lang") && d.langParam == "" {
		d.langParam = name
	}
	if isPerPageName(name) && d.perPageParam == "" {
		d.perPageParam = name
	}
}

func isPerPageName(name string) bool {
	return strings.Contains(name, "per_page") || strings.Contains(name, "limit")
}

var (
	ajaxUrlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://[^"']*admin-ajax\.php`),
		regexp.MustCompile(`['"](/wp/[^'"]*admin-ajax\.php)['"]`),
	}
	actionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`action["']?\s*[:=]\s*["']([a-zA-Z0-9_:-]+)["']`),
		regexp.MustCompile(`['"]action['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	noncePatterns = []*regexp.Regexp{
		regexp.MustCompile(`nonce["']?\s*[:=]\s*["']([a-zA-Z0-9]+)["']`),
		regexp.MustCompile(`['"]nonce['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	packParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`pack(?:Param|Name)?["']?\s*[:=]\s*["']([^'"]+)["']`),
		regexp.MustCompile(`['"]packParam['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	langParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`lang(?:uage)?Param["']?\s*[:=]\s*["']([^'"]+)["']`),
		regexp.MustCompile(`['"]lang['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	keywordParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`keywordParam["']?\s*[:=]\s*["']([^'"]+)["']`),
		regexp.MustCompile(`['"]keyword['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	pageParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`pageParam["']?\s*[:=]\s*["']([^'"]+)["']`),
		regexp.MustCompile(`['"]page['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	perPageParamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`per(?:Page|_page|PageParam)["']?\s*[:=]\s*["']([^'"]+)["']`),
		regexp.MustCompile(`['"]per_page['"]\s*:\s*['"]([^'"]+)['"]`),
	}
	perPageValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`per[_ ]?page["']?\s*[:=]\s*([0-9]+)`),
		regexp.MustCompile(`['"]per_page['"]\s*:\s*([0-9]+)`),
	}
)

// scanScripts runs the regex strategies over every inline script, only
// filling fields the form pass left empty.
func (d *discovery) scanScripts(doc *goquery.Document) {
	for _, node := range doc.Find("script").Nodes {
		text := htmlutil.GetText(node)
		if strings.TrimSpace(text) == "" {
			continue
		}
		d.scanScript(text)
	}
}

func (d *discovery) scanScript(text string) {
	if d.ajaxUrl == "" {
		d.ajaxUrl = regexFirst(ajaxUrlPatterns, text)
	}
	if d.action == "" {
		d.action = regexFirst(actionPatterns, text)
	}
	if d.nonce == "" {
		d.nonce = regexFirst(noncePatterns, text)
	}
	if d.packParam == "" {
		d.packParam = regexFirst(packParamPatterns, text)
	}
	if d.langParam == "" {
		d.langParam = regexFirst(langParamPatterns, text)
	}
	if d.keywordParam == "" {
		d.keywordParam = regexFirst(keywordParamPatterns, text)
	}
	if d.pageParam == "" {
		d.pageParam = regexFirst(pageParamPatterns, text)
	}
	if d.perPageParam == "" {
		d.perPageParam = regexFirst(perPageParamPatterns, text)
	}
	if d.perPage == 0 {
		if value := regexFirst(perPageValuePatterns, text); value != "" {
			if n, err := strconv.Atoi(value); err == nil {
				d.perPage = n
			}
		}
	}
}

// regexFirst returns the first pattern's first capture group (or whole
// match for group-less patterns), skipping patterns that matched nothing
// usable.
func regexFirst(patterns []*regexp.Regexp, text string) string {
	for _, pattern := range patterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		value := groups[0]
		if len(groups) > 1 {
			value = groups[1]
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func (d *discovery) toConfig(baseUrl string) SearchConfig {
	ajaxUrl := d.ajaxUrl
	if strings.HasPrefix(ajaxUrl, "/") {
		if base, err := url.Parse(baseUrl); err == nil {
			if ref, err := url.Parse(ajaxUrl); err == nil {
				ajaxUrl = base.ResolveReference(ref).String()
			}
		}
	}

	packParam := d.packParam
	if packParam == "" {
		packParam = "pack[]"
	}
	pageParam := d.pageParam
	if pageParam == "" {
		pageParam = "page"
	}

	return SearchConfig{
		BaseUrl:          baseUrl,
		AjaxUrl:          ajaxUrl,
		Method:           "POST",
		Action:           d.action,
		Nonce:            d.nonce,
		PackParam:        packParam,
		LangParam:        d.langParam,
		KeywordParam:     d.keywordParam,
		PageParam:        pageParam,
		PerPageParam:     d.perPageParam,
		PerPage:          d.perPage,
		AdditionalParams: d.additional,
	}
}
