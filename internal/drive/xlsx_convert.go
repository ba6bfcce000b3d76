package drive

import (
	"fmt"

	"github.com/andresuchdata/autopo-go/internal/ingest"
)

// convertXLSXToCSV converts the configured sheet (the first by default) of an
// XLSX file to a CSV file. Cells go through the reader's cell interpreter.
func convertXLSXToCSV(reader *ingest.Reader, xlsxPath, csvPath string) error {
	if err := reader.WriteCSV(xlsxPath, csvPath); err != nil {
		return fmt.Errorf("failed to convert %s: %w", xlsxPath, err)
	}
	return nil
}
