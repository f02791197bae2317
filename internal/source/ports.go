// Package source reads the wide-format expenditure table from wherever it
// is published: a local CSV or XLSX file, a GCS object, or a spreadsheet.
package source

import (
	"context"
	"errors"

	"healthdash/internal/core"
)

// Source is an outbound port yielding the raw wide-format table.
type Source interface {
	Fetch(ctx context.Context) (core.RawTable, error)
	// Name identifies the source in logs and import records.
	Name() string
}

// ReadOptions controls how a delimited or spreadsheet file is decoded.
type ReadOptions struct {
	// SkipRows is the number of leading metadata lines before the header.
	SkipRows int
	// Delimiter separates CSV fields. Zero means ','.
	Delimiter rune
	// Sheet selects the XLSX worksheet. Empty means the first one.
	Sheet string
}

// DefaultSkipRows matches the World Bank indicator export, which carries
// four lines of metadata above the header.
const DefaultSkipRows = 4

// DefaultReadOptions returns the options for a World Bank CSV export.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{SkipRows: DefaultSkipRows, Delimiter: ','}
}

var ErrUnsupportedFormat = errors.New("unsupported file format")
