package recordstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	tableFileExtension = ".json"
	tempFileSuffix     = ".tmp"
)

var errMissingDirectory = errors.New("recordstore: directory is required")

// DirectoryBackend stores one JSON document per table inside a directory.
type DirectoryBackend struct {
	fs  afero.Fs
	dir string
}

// NewDirectoryBackend prepares dir on fs. A nil fs selects the operating system filesystem.
func NewDirectoryBackend(fs afero.Fs, dir string) (*DirectoryBackend, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errMissingDirectory
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("recordstore: create directory %s: %w", trimmed, err)
	}
	return &DirectoryBackend{fs: fs, dir: trimmed}, nil
}

// Dir returns the directory holding the table files.
func (b *DirectoryBackend) Dir() string {
	return b.dir
}

// Load reads the table file. A missing file is an empty table.
func (b *DirectoryBackend) Load(_ context.Context, table string) ([]Row, error) {
	data, err := afero.ReadFile(b.fs, b.tablePath(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTable(data)
}

// Save rewrites the whole table file through a temporary file and a rename.
func (b *DirectoryBackend) Save(_ context.Context, table string, rows []Row) error {
	data, err := encodeTable(cloneRows(rows))
	if err != nil {
		return err
	}
	target := b.tablePath(table)
	temp := target + tempFileSuffix
	if err := afero.WriteFile(b.fs, temp, data, 0o644); err != nil {
		return err
	}
	return b.fs.Rename(temp, target)
}

func (b *DirectoryBackend) tablePath(table string) string {
	return filepath.Join(b.dir, table+tableFileExtension)
}
