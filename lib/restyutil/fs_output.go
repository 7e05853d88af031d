package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes one file per http message into a directory,
// named by message id.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput wipes dir from previous runs and recreates it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	if err := os.RemoveAll(dir); err != nil {
		return FilesystemOutput{}, fmt.Errorf("clearing debug output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return FilesystemOutput{}, fmt.Errorf("creating debug output directory: %w", err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
