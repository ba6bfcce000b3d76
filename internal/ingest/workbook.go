package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// readWorkbook reads one sheet of an XLSX file with raw cell values. Data
// cells go through the configured CellInterpreter; the header row is kept
// verbatim.
func (r *Reader) readWorkbook(path string) ([][]string, error) {
	name := filepath.Base(path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, name, err)
	}
	defer f.Close()

	sheet := r.cfg.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s: workbook has no sheets", ErrUnreadableFile, name)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: sheet %s: %v", ErrUnreadableFile, name, sheet, err)
	}

	records := make([][]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			records = append(records, row)
			continue
		}
		if isBlankRow(row) {
			continue
		}
		out := make([]string, len(row))
		for j, cell := range row {
			out[j] = r.cfg.CellInterpreter(cell)
		}
		records = append(records, out)
	}
	return records, nil
}

// WriteCSV converts the configured sheet of an XLSX workbook to a
// comma-delimited CSV file, applying the cell interpreter to data cells.
func (r *Reader) WriteCSV(xlsxPath, csvPath string) error {
	records, err := r.readWorkbook(xlsxPath)
	if err != nil {
		return err
	}
	return writeCSVFile(csvPath, records)
}
