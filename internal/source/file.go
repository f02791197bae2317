package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"healthdash/internal/core"
)

// FileSource reads the table from a local file, picking the decoder from
// the file extension.
type FileSource struct {
	Path    string
	Options ReadOptions
}

var _ Source = (*FileSource)(nil)

func NewFileSource(path string, opts ReadOptions) *FileSource {
	return &FileSource{Path: path, Options: opts}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context) (core.RawTable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open dataset %q: %w", s.Path, err)
	}
	defer f.Close()
	return Decode(s.Path, f, s.Options)
}

// Decode reads r with the decoder matching the extension of name.
func Decode(name string, r io.Reader, opts ReadOptions) (core.RawTable, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt", "":
		return ReadCSV(r, opts)
	case ".tsv":
		opts.Delimiter = '\t'
		return ReadCSV(r, opts)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	default:
		return core.RawTable{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
