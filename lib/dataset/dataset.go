// Package dataset defines the canonical series/card records produced by
// every acquisition tier and the rules that map raw upstream values onto
// them.
package dataset

import (
	"encoding/json"
	"io"
	"strings"
)

type Series struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	SetCode     string `json:"setCode"`
	ReleaseYear int    `json:"releaseYear"`
}

type Card struct {
	Id          string  `json:"id"`
	SeriesId    string  `json:"seriesId"`
	CardCode    string  `json:"cardCode"`
	Title       string  `json:"title"`
	Rarity      string  `json:"rarity"`
	Description string  `json:"description"`
	Color       *string `json:"color"`
	Level       *int    `json:"level"`
	Cost        *int    `json:"cost"`
	ImageUrl    *string `json:"imageUrl"`
	Effect      string  `json:"effect,omitempty"`
}

// ExportBundle is the unit every tier returns and the shape of the final
// dataset file.
type ExportBundle struct {
	Series []Series `json:"series"`
	Cards  []Card   `json:"cards"`
}

// WriteJSON writes the bundle either minified or indented. Nil slices are
// written as empty arrays and non-ASCII text is left unescaped, so the
// output matches the app's bundled dataset byte for byte.
func (b ExportBundle) WriteJSON(w io.Writer, pretty bool) error {
	if b.Series == nil {
		b.Series = []Series{}
	}
	if b.Cards == nil {
		b.Cards = []Card{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(b)
}

// rarityTable maps every upstream rarity label that has been observed in
// the wild onto the app's five-value scale.
var rarityTable = map[string]string{
	"C":   "C",
	"U":   "U",
	"R":   "R",
	"SR":  "SR",
	"RR":  "SR",
	"RRR": "SP",
	"SEC": "SP",
	"SP":  "SP",
	"SSP": "SP",
}

// NormalizeRarity maps an upstream rarity label onto one of C, U, R, SR,
// SP. Unknown non-empty labels become R and missing ones become C.
func NormalizeRarity(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return "C"
	}
	if normalized, ok := rarityTable[label]; ok {
		return normalized
	}
	return "R"
}
