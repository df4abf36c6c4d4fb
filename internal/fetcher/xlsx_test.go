package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// createTestXLSX writes sheets in order and returns the file path.
func createTestXLSX(t *testing.T, names []string, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range names {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, []string{"Sites"}, map[string][][]string{
		"Sites": {
			{"business_type", "lat", "lon"},
			{" cafe ", "12.9", "79.1"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"cafe", "12.9", "79.1"}, rows[1])
}

func TestReadXLSX_SkipsBlankRows(t *testing.T) {
	path := createTestXLSX(t, []string{"Sites"}, map[string][][]string{
		"Sites": {
			{"a", "b"},
			{"", " "},
			{"c", "d"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, rows)
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	path := createTestXLSX(t, []string{"First", "Second"}, map[string][][]string{
		"First":  {{"one"}},
		"Second": {{"two"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Second"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"two"}}, rows)

	rows, err = ReadXLSX(path, XLSXOptions{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"two"}}, rows)
}

func TestReadXLSX_Errors(t *testing.T) {
	path := createTestXLSX(t, []string{"Only"}, map[string][][]string{"Only": {{"x"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}
