// Package offline reads and authors the curated snapshot datasets used
// when every live acquisition tier has failed.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wsimport/lib/dataset"
)

var (
	ErrMissing  = errors.New("offline snapshot not found")
	ErrNoSeries = errors.New("offline snapshot is missing the series object")
)

// snapshotFile is the on-disk shape: a single series object plus its
// cards, unlike the aggregated dataset output where series is a list.
type snapshotFile struct {
	Series *dataset.Series `json:"series"`
	Cards  []dataset.Card  `json:"cards"`
}

// Load reads the curated snapshot for one set. The snapshot file is
// named after the lowercased set code.
func Load(dir, setCode string) (dataset.ExportBundle, error) {
	path := filepath.Join(dir, strings.ToLower(setCode)+".json")
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return dataset.ExportBundle{}, fmt.Errorf("set %s at %s: %w", setCode, path, ErrMissing)
	}
	if err != nil {
		return dataset.ExportBundle{}, err
	}

	var snapshot snapshotFile
	err = json.Unmarshal(contents, &snapshot)
	if err != nil {
		return dataset.ExportBundle{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if snapshot.Series == nil || *snapshot.Series == (dataset.Series{}) {
		return dataset.ExportBundle{}, fmt.Errorf("set %s: %w", setCode, ErrNoSeries)
	}

	cards := snapshot.Cards
	if cards == nil {
		cards = []dataset.Card{}
	}
	return dataset.ExportBundle{
		Series: []dataset.Series{*snapshot.Series},
		Cards:  cards,
	}, nil
}
