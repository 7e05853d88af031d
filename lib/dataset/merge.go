package dataset

import "sort"

// Merge folds per-catalog bundles into one dataset. The first occurrence
// of a series id or a (card id, card code) pair wins and later duplicates
// are dropped. Cards are sorted by (seriesId, cardCode) so the output is
// stable regardless of upstream ordering; series keep their input order.
func Merge(bundles ...ExportBundle) ExportBundle {
	merged := ExportBundle{
		Series: []Series{},
		Cards:  []Card{},
	}

	type cardKey struct {
		id   string
		code string
	}
	seenSeries := map[string]bool{}
	seenCards := map[cardKey]bool{}

	for _, bundle := range bundles {
		for _, series := range bundle.Series {
			if seenSeries[series.Id] {
				continue
			}
			seenSeries[series.Id] = true
			merged.Series = append(merged.Series, series)
		}
		for _, card := range bundle.Cards {
			key := cardKey{id: card.Id, code: card.CardCode}
			if seenCards[key] {
				continue
			}
			seenCards[key] = true
			merged.Cards = append(merged.Cards, card)
		}
	}

	sort.Slice(merged.Cards, func(i, j int) bool {
		if merged.Cards[i].SeriesId != merged.Cards[j].SeriesId {
			return merged.Cards[i].SeriesId < merged.Cards[j].SeriesId
		}
		return merged.Cards[i].CardCode < merged.Cards[j].CardCode
	})
	return merged
}
