// Package csvimport converts curated CSV card sheets into the canonical
// dataset shape. The CSV is trusted input authored by hand: values are
// trimmed but never re-slugged or re-normalized.
package csvimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"wsimport/lib/dataset"
)

var requiredColumns = []string{
	"series_id",
	"series_name",
	"set_code",
	"release_year",
	"card_id",
	"card_code",
	"title",
	"rarity",
	"description",
	"color",
	"level",
	"cost",
	"image_url",
}

var utf8Bom = []byte{0xef, 0xbb, 0xbf}

// Load reads CSV rows from a local path or an http(s) URL and converts
// them into a bundle.
func Load(ctx context.Context, source string) (dataset.ExportBundle, error) {
	data, err := read(ctx, source)
	if err != nil {
		return dataset.ExportBundle{}, err
	}
	return Parse(data)
}

func read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		res, err := resty.New().
			SetTimeout(time.Second * 30).
			R().
			SetContext(ctx).
			Get(source)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", source, err)
		}
		if res.IsError() {
			return nil, fmt.Errorf("http error %d when downloading %s", res.StatusCode(), source)
		}
		return res.Body(), nil
	}
	return os.ReadFile(source)
}

// Parse converts CSV content. Series are deduplicated by id, first
// occurrence wins; cards keep their row order. A leading UTF-8 byte
// order mark is tolerated.
func Parse(data []byte) (dataset.ExportBundle, error) {
	data = bytes.TrimPrefix(data, utf8Bom)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return dataset.ExportBundle{}, fmt.Errorf("parsing csv: %w", err)
	}

	index := map[string]int{}
	if len(records) > 0 {
		for i, name := range records[0] {
			index[name] = i
		}
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return dataset.ExportBundle{}, fmt.Errorf(
			"CSV file is missing required columns: %s",
			strings.Join(missing, ", "),
		)
	}

	rows := records[1:]
	if len(rows) == 0 {
		return dataset.ExportBundle{}, errors.New("CSV file does not contain any data rows")
	}

	bundle := dataset.ExportBundle{
		Series: []dataset.Series{},
		Cards:  []dataset.Card{},
	}
	seenSeries := map[string]bool{}

	for i, row := range rows {
		get := func(column string) string {
			return strings.TrimSpace(row[index[column]])
		}
		line := i + 1

		yearValue := get("release_year")
		if yearValue == "" {
			return dataset.ExportBundle{}, fmt.Errorf("row %d: release_year must not be empty", line)
		}
		releaseYear, err := strconv.Atoi(yearValue)
		if err != nil {
			return dataset.ExportBundle{}, fmt.Errorf("row %d: release_year: %w", line, err)
		}
		level, err := optionalInt(get("level"))
		if err != nil {
			return dataset.ExportBundle{}, fmt.Errorf("row %d: level: %w", line, err)
		}
		cost, err := optionalInt(get("cost"))
		if err != nil {
			return dataset.ExportBundle{}, fmt.Errorf("row %d: cost: %w", line, err)
		}

		seriesId := get("series_id")
		if !seenSeries[seriesId] {
			seenSeries[seriesId] = true
			bundle.Series = append(bundle.Series, dataset.Series{
				Id:          seriesId,
				Name:        get("series_name"),
				SetCode:     get("set_code"),
				ReleaseYear: releaseYear,
			})
		}

		card := dataset.Card{
			Id:          get("card_id"),
			SeriesId:    seriesId,
			CardCode:    get("card_code"),
			Title:       get("title"),
			Rarity:      get("rarity"),
			Description: get("description"),
			Level:       level,
			Cost:        cost,
		}
		if color := get("color"); color != "" {
			card.Color = &color
		}
		if imageUrl := get("image_url"); imageUrl != "" {
			card.ImageUrl = &imageUrl
		}
		bundle.Cards = append(bundle.Cards, card)
	}

	return bundle, nil
}

func optionalInt(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
