package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mazen160/go-random"

	"wsimport/lib/dataset"
)

// writeBundle writes the dataset atomically: encode into a temp file
// with a random suffix in the destination directory, then rename over
// the target. Parent directories are created as needed.
func writeBundle(bundle dataset.ExportBundle, path string, pretty bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	suffix, err := random.String(8)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf("%s.%s.tmp", filepath.Base(path), suffix))

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := bundle.WriteJSON(file, pretty); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
