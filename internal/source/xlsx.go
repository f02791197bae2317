package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"healthdash/internal/core"
)

// ReadXLSX decodes one worksheet of an Excel workbook into a RawTable,
// skipping opts.SkipRows leading rows.
func ReadXLSX(r io.Reader, opts ReadOptions) (core.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("%w: open workbook: %v", core.ErrMalformedInput, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return core.RawTable{}, fmt.Errorf("%w: workbook has no sheets", core.ErrMalformedInput)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("%w: read sheet %q: %v", core.ErrMalformedInput, sheet, err)
	}
	if len(rows) <= opts.SkipRows {
		return core.RawTable{}, fmt.Errorf("%w: sheet %q has no header after %d metadata rows", core.ErrMalformedInput, sheet, opts.SkipRows)
	}
	rows = rows[opts.SkipRows:]
	return core.RawTable{Header: rows[0], Rows: rows[1:]}, nil
}
