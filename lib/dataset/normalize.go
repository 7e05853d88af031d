package dataset

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"wsimport/lib/jsonutil"
	"wsimport/lib/timezone"
)

// Detail carries the fields scraped from a card's public detail page. It
// is deliberately a plain struct so normalization stays independent of
// whichever scraper produced it.
type Detail struct {
	Title  string
	Effect string
	Image  string
}

// seriesNameOverrides pins the display name for catalogs whose upstream
// metadata is known to be unreliable, keyed by family code.
var seriesNameOverrides = map[string]string{
	"DDD": "ダンダダン / DAN DA DAN",
	"SFN": "葬送のフリーレン / Frieren: Beyond Journey's End",
}

var (
	cardCodeKeys = []string{"card_no", "cardNo", "cardCode", "card_code", "number"}
	titleKeys    = []string{"card_name", "cardName", "name", "title"}

	descriptionKeys = []string{
		"ability",
		"ability1",
		"ability2",
		"ability_text",
		"text",
		"effect",
		"flavor",
		"flavor_text",
		"ability_en",
	}
)

// CardCode returns the catalog code of a raw upstream record, or "" when
// the record carries none.
func CardCode(raw any) string {
	data, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	return jsonutil.FirstString(data, cardCodeKeys...)
}

// BuildSeries derives the canonical series record from upstream metadata
// (which may be empty), falling back onto the raw card list and finally
// the requested catalog id.
func BuildSeries(info map[string]any, cards []any, catalogId string) Series {
	title := jsonutil.FirstString(info, "name", "title", "packTitle", "productName", "product_title")
	if title == "" {
		title = catalogId
	}

	setCode := jsonutil.FirstString(info, "setCode", "set_code", "productCode", "product_code", "series", "series_id")
	if setCode == "" {
		setCode = deriveSetCode(cards, catalogId)
	}

	// Release years default to the JST calendar, not the server's.
	year, ok := ExtractYear(jsonutil.FirstString(info, "release", "releaseDate", "release_date", "date"))
	if !ok {
		year = timezone.Now().Year()
	}

	family, _, _ := strings.Cut(setCode, "/")
	if override, ok := seriesNameOverrides[strings.ToUpper(family)]; ok {
		title = override
	}

	return Series{
		Id:          SlugId(setCode),
		Name:        title,
		SetCode:     setCode,
		ReleaseYear: year,
	}
}

// deriveSetCode reconstructs a FAMILY/PRODUCT code from the first card
// code found in the raw list, e.g. "DDD/S97-001" yields "DDD/S97".
func deriveSetCode(cards []any, fallback string) string {
	for _, raw := range cards {
		code := CardCode(raw)
		if code == "" {
			continue
		}
		parts := strings.Split(code, "-")
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return code
	}
	return fallback
}

// BuildCard maps one raw upstream record onto the canonical card shape.
// Records missing both a card code and a title are unusable and yield
// nil. detail may be nil; when present its title rescues records whose
// upstream title is blank, its image wins over the upstream image and its
// effect text populates the effect field.
func BuildCard(raw any, series Series, detail *Detail) *Card {
	data, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	cardCode := jsonutil.FirstString(data, cardCodeKeys...)
	title := jsonutil.FirstString(data, titleKeys...)
	if title == "" && detail != nil {
		title = strings.TrimSpace(detail.Title)
	}
	if cardCode == "" || title == "" {
		return nil
	}

	description := buildDescription(data)
	effect := ""
	if detail != nil {
		detailEffect := strings.TrimSpace(detail.Effect)
		if detailEffect == "" {
			effect = description
		} else {
			effect = detailEffect
			switch {
			case description == "":
				description = detailEffect
			case strings.Contains(description, detailEffect) || strings.Contains(detailEffect, description):
				// One already subsumes the other, no merge needed.
			default:
				description = description + "\n\n" + detailEffect
			}
		}
	}

	imageUrl := jsonutil.FirstString(data, "image", "imageUrl", "image_url", "card_image")
	if detail != nil && strings.TrimSpace(detail.Image) != "" {
		imageUrl = strings.TrimSpace(detail.Image)
	}
	imageUrl = NormalizeImageUrl(imageUrl, series.SetCode, cardCode)

	card := &Card{
		Id:          SlugId(cardCode),
		SeriesId:    series.Id,
		CardCode:    cardCode,
		Title:       title,
		Rarity:      NormalizeRarity(jsonutil.FirstString(data, "rarity", "rare", "rar")),
		Description: description,
		Level:       OptionalInt(jsonutil.FirstString(data, "level", "lv")),
		Cost:        OptionalInt(jsonutil.FirstString(data, "cost", "c")),
		ImageUrl:    &imageUrl,
		Effect:      effect,
	}
	if color := strings.ToUpper(jsonutil.FirstString(data, "color", "colour", "card_color", "attribute")); color != "" {
		card.Color = &color
	}
	return card
}

// buildDescription concatenates every distinct ability and flavor text
// fragment in priority order, separated by blank lines.
func buildDescription(data map[string]any) string {
	var parts []string
	for _, key := range descriptionKeys {
		value := jsonutil.FirstString(data, key)
		if value == "" {
			continue
		}
		duplicate := false
		for _, seen := range parts {
			if seen == value {
				duplicate = true
				break
			}
		}
		if !duplicate {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n\n")
}

// OptionalInt parses the loosely formatted level/cost columns. Blank
// values, the literal "-" placeholder, garbage and negative numbers all
// mean "not present".
func OptionalInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

var yearRegex = regexp.MustCompile(`(20\d{2}|19\d{2})`)

// ExtractYear pulls the first plausible 4-digit year out of a date-like
// string such as "2024-03-08" or "2024年3月8日".
func ExtractYear(value string) (int, bool) {
	match := yearRegex.FindString(value)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

var imageBase = &url.URL{Scheme: "https", Host: "ws-tcg.com", Path: "/wp/wp-content/cardlist/"}

// officialImagePath recognizes both the current and the legacy image
// trees on the official site.
var officialImagePath = regexp.MustCompile(`ws-tcg\.com/wp/wp-content/(images/cardlist|cardlist/cardimages)/`)

// NormalizeImageUrl resolves an upstream image reference into an absolute
// https URL. Empty references and references into the official image
// trees are replaced with the canonical derived URL so the dataset stays
// uniform; anything else is passed through with its scheme upgraded.
func NormalizeImageUrl(imageUrl, setCode, cardCode string) string {
	cleaned := strings.TrimSpace(imageUrl)
	if cleaned == "" {
		return CanonicalImageUrl(setCode, cardCode)
	}

	switch {
	case strings.HasPrefix(cleaned, "//"):
		cleaned = "https:" + cleaned
	case strings.HasPrefix(cleaned, "http://"):
		cleaned = "https://" + strings.TrimPrefix(cleaned, "http://")
	case !strings.HasPrefix(cleaned, "https://"):
		cleaned = resolveImagePath(cleaned)
	}

	if officialImagePath.MatchString(cleaned) {
		return CanonicalImageUrl(setCode, cardCode)
	}
	return cleaned
}

// CanonicalImageUrl builds the predictable image location used by the
// official card list, e.g. DDD/S97-001 lives under
// .../images/cardlist/d/ddd_s97/ddd_s97_001.png.
func CanonicalImageUrl(setCode, cardCode string) string {
	catalog := SlugImage(setCode)
	if catalog == "" {
		catalog = "cards"
	}
	return fmt.Sprintf(
		"https://ws-tcg.com/wp/wp-content/images/cardlist/%s/%s/%s.png",
		catalog[:1], catalog, SlugImage(cardCode),
	)
}

func resolveImagePath(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return imageBase.String() + path
	}
	return imageBase.ResolveReference(ref).String()
}
