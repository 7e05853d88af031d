package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	first := ExportBundle{
		Series: []Series{{Id: "sfn-s108", Name: "フリーレン", SetCode: "SFN/S108", ReleaseYear: 2024}},
		Cards: []Card{
			{Id: "sfn-s108-002", SeriesId: "sfn-s108", CardCode: "SFN/S108-002", Title: "ヒンメル", Rarity: "R"},
			{Id: "sfn-s108-001", SeriesId: "sfn-s108", CardCode: "SFN/S108-001", Title: "フリーレン", Rarity: "SR"},
		},
	}
	second := ExportBundle{
		Series: []Series{
			// Duplicate id, should be dropped in favor of the first bundle.
			{Id: "sfn-s108", Name: "other", SetCode: "SFN/S108", ReleaseYear: 2020},
			{Id: "ddd-s97", Name: "ダンダダン", SetCode: "DDD/S97", ReleaseYear: 2024},
		},
		Cards: []Card{
			{Id: "sfn-s108-001", SeriesId: "sfn-s108", CardCode: "SFN/S108-001", Title: "duplicate", Rarity: "C"},
			{Id: "ddd-s97-001", SeriesId: "ddd-s97", CardCode: "DDD/S97-001", Title: "モモ", Rarity: "SR"},
		},
	}

	merged := Merge(first, second)

	expected := ExportBundle{
		Series: []Series{
			{Id: "sfn-s108", Name: "フリーレン", SetCode: "SFN/S108", ReleaseYear: 2024},
			{Id: "ddd-s97", Name: "ダンダダン", SetCode: "DDD/S97", ReleaseYear: 2024},
		},
		Cards: []Card{
			{Id: "ddd-s97-001", SeriesId: "ddd-s97", CardCode: "DDD/S97-001", Title: "モモ", Rarity: "SR"},
			{Id: "sfn-s108-001", SeriesId: "sfn-s108", CardCode: "SFN/S108-001", Title: "フリーレン", Rarity: "SR"},
			{Id: "sfn-s108-002", SeriesId: "sfn-s108", CardCode: "SFN/S108-002", Title: "ヒンメル", Rarity: "R"},
		},
	}
	if diff := cmp.Diff(expected, merged); diff != "" {
		t.Fatal(diff)
	}
}

func TestMergeIdempotent(t *testing.T) {
	bundle := Merge(ExportBundle{
		Series: []Series{{Id: "ddd-s97", Name: "ダンダダン", SetCode: "DDD/S97", ReleaseYear: 2024}},
		Cards: []Card{
			{Id: "ddd-s97-002", SeriesId: "ddd-s97", CardCode: "DDD/S97-002", Rarity: "R"},
			{Id: "ddd-s97-001", SeriesId: "ddd-s97", CardCode: "DDD/S97-001", Rarity: "SR"},
		},
	})

	if diff := cmp.Diff(bundle, Merge(bundle, bundle)); diff != "" {
		t.Fatal(diff)
	}
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge()
	if merged.Series == nil || merged.Cards == nil {
		t.Fatal("merge must always return non-nil slices")
	}
}
