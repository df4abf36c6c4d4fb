package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet holding the site list.
type XLSXOptions struct {
	SheetIndex int    // first sheet when zero
	SheetName  string // takes precedence over SheetIndex
}

// ReadXLSX returns the trimmed cell text of one worksheet. Rows whose cells
// are all empty are skipped.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	book, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := pickSheet(book, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if cells, ok := rowText(row); ok {
			rows = append(rows, cells)
		}
	}
	return rows, nil
}

func pickSheet(book *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName == "" {
		if opts.SheetIndex < 0 || opts.SheetIndex >= len(book.Sheets) {
			return nil, eris.Errorf("xlsx: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(book.Sheets))
		}
		return book.Sheets[opts.SheetIndex], nil
	}
	sheet, ok := book.Sheet[opts.SheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
	}
	return sheet, nil
}

// rowText reports false for nil or blank rows.
func rowText(row *xlsx.Row) ([]string, bool) {
	if row == nil {
		return nil, false
	}
	cells := make([]string, len(row.Cells))
	blank := true
	for i, c := range row.Cells {
		cells[i] = strings.TrimSpace(c.String())
		if cells[i] != "" {
			blank = false
		}
	}
	return cells, !blank
}
