package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONMinified(t *testing.T) {
	bundle := ExportBundle{
		Series: []Series{{Id: "sfn-s108", Name: "葬送のフリーレン / Frieren: Beyond Journey's End", SetCode: "SFN/S108", ReleaseYear: 2024}},
		Cards: []Card{{
			Id:          "sfn-s108-001",
			SeriesId:    "sfn-s108",
			CardCode:    "SFN/S108-001",
			Title:       "フリーレン",
			Rarity:      "SR",
			Description: "«魔法» のキャラ",
			Color:       strPtr("GREEN"),
			Level:       intPtr(0),
			Cost:        intPtr(1),
			ImageUrl:    strPtr("https://ws-tcg.com/wp/wp-content/images/cardlist/s/sfn_s108/sfn_s108_001.png"),
		}},
	}

	var out strings.Builder
	require.NoError(t, bundle.WriteJSON(&out, false))

	expected := `{"series":[{"id":"sfn-s108","name":"葬送のフリーレン / Frieren: Beyond Journey's End","setCode":"SFN/S108","releaseYear":2024}],` +
		`"cards":[{"id":"sfn-s108-001","seriesId":"sfn-s108","cardCode":"SFN/S108-001","title":"フリーレン","rarity":"SR",` +
		`"description":"«魔法» のキャラ","color":"GREEN","level":0,"cost":1,` +
		`"imageUrl":"https://ws-tcg.com/wp/wp-content/images/cardlist/s/sfn_s108/sfn_s108_001.png"}]}` + "\n"
	require.Equal(t, expected, out.String())
}

func TestWriteJSONEmptyBundle(t *testing.T) {
	var out strings.Builder
	require.NoError(t, ExportBundle{}.WriteJSON(&out, false))
	require.Equal(t, `{"series":[],"cards":[]}`+"\n", out.String())
}

func TestWriteJSONOptionalFields(t *testing.T) {
	bundle := ExportBundle{
		Cards: []Card{{
			Id:       "ddd-s97-001",
			SeriesId: "ddd-s97",
			CardCode: "DDD/S97-001",
			Title:    "モモ",
			Rarity:   "C",
			Effect:   "【自】 <アンコール>",
		}},
	}

	var out strings.Builder
	require.NoError(t, bundle.WriteJSON(&out, false))

	// Absent optionals serialize as null and angle brackets survive
	// unescaped.
	require.Contains(t, out.String(), `"color":null,"level":null,"cost":null,"imageUrl":null`)
	require.Contains(t, out.String(), `"effect":"【自】 <アンコール>"`)
}

func TestWriteJSONPretty(t *testing.T) {
	bundle := ExportBundle{Series: []Series{{Id: "ddd-s97", Name: "ダンダダン / DAN DA DAN", SetCode: "DDD/S97", ReleaseYear: 2024}}}

	var out strings.Builder
	require.NoError(t, bundle.WriteJSON(&out, true))

	expected := `{
  "series": [
    {
      "id": "ddd-s97",
      "name": "ダンダダン / DAN DA DAN",
      "setCode": "DDD/S97",
      "releaseYear": 2024
    }
  ],
  "cards": []
}
`
	require.Equal(t, expected, out.String())
}
